// Package textutil provides text helpers shared by the scanner and organizer:
// path-component sanitizing, unicode normalization for path comparison, and
// case-folded identity keys.
//
// Path components produced here never contain characters that are invalid on
// common filesystems, and comparison keys are NFC-normalized so visually equal
// names written by different operating systems compare equal.
package textutil
