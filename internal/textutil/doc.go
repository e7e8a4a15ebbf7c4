// Package textutil provides filename sanitization helpers shared by export
// and storage key code.
package textutil
