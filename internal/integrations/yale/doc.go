// Package yale exposes Yale smart alarm door contacts, their batteries and
// the panel's problem flags as binary sensor entities.
package yale
