// Package validator provides a small validation abstraction for request and
// settings structs.
//
// Business code depends on the Validator interface. The go-playground
// implementation reports failures keyed by the struct's json field names and
// adds the phone10 tag. NormalizePhone10, IsPersonName and IsPrintASCII are
// plain helpers shared with the relay entity.
package validator
