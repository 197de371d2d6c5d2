// Package cipher scrambles a complex spectrogram under a password and
// restores it.
//
// A password is hashed into a seed (package keyderive), the seed keys a
// pinned pseudo-random stream (package prng), and the stream yields a column
// permutation (package permutation) and magnitude scale factors (package
// scale). Nothing derived from the password is stored: Decrypt rederives the
// same parameters from the password and the matrix shape, so the shape seen
// at decrypt time must equal the shape that was encrypted.
//
// The transform keeps phase intact and only changes magnitudes and column
// order. It hides content from casual listening; it is not a secure cipher.
package cipher
