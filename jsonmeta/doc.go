// Package jsonmeta decodes JSON documents into registered types by walking
// their meta descriptors.
//
// The decoder needs nothing from a type beyond its registry name and
// members: each object key is resolved with FindMember, nested objects are
// decoded in place through Member.Get, and scalars are boxed and written
// with Member.Set. Keys without a member are skipped unless
// DisallowUnknownFields is set.
//
// # Envelope Format
//
// DecodeEnvelope reads documents that name their root type:
//
//	{
//	  "Thing": {
//	    "name": "crate",
//	    "position": {"x": 1, "y": 2, "z": 0}
//	  }
//	}
//
// # Conversions
//
//   - strings to string kinds, true/false to bool kinds
//   - numbers to integer kinds with range checks, and to float kinds
//   - arrays to slices and arrays of registered element types
//   - null to the zero value (nil for pointer members)
package jsonmeta
