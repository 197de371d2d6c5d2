// Command sonido-crypt scrambles and restores audio by transforming its
// spectrogram under a password.
//
// The password is hashed into a seed that drives a deterministic
// generator; the generator yields per-frequency and per-time scale
// factors and a permutation of the time segments. Encryption scales the
// STFT magnitudes and reorders the segments, keeping phase; decryption
// derives the same values from the same password and undoes both.
//
// Usage:
//
//	sonido-crypt analyze [flags] <input.wav>
//	sonido-crypt encrypt [flags] <input.wav> <output.sgc>
//	sonido-crypt decrypt [flags] <input.sgc> <output.wav>
//	sonido-crypt params  [flags] -rows R -cols C
//
// analyze saves the original, encrypted and decrypted spectrograms (PNG)
// and audio (WAV) under -out with a timestamp in each name and prints a
// report. encrypt stores the encrypted spectrogram in a .sgc container;
// decrypt turns such a container back into audio. params prints the
// permutation and scale factors derived for a password and shape.
//
// The password comes from -password or the SONIDO_CRYPT_PASSWORD
// environment variable. -config loads a JSON pipeline configuration over
// the defaults.
//
// This is an obfuscation scheme, not encryption in the cryptographic sense.
package main
