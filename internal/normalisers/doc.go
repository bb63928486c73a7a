// Package normalisers provides implementations of driven.TextNormaliser
// that clean headline text before it is hashed and stored.
package normalisers
