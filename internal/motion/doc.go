// Package motion turns a decoded video into a sequence of motion samples.
//
// A Sampler walks the frames of a Decoder keeping every Nth one, and a
// Scorer runs a dense optical-flow estimator over each consecutive pair of
// sampled frames, reducing the flow field to its mean vector length.
package motion
