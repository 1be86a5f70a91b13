// Package analysis post-processes sampled runs.
//
//   - [DominantFrequency]: strongest oscillation in a series, e.g. guide
//     force ringing or tip bounce
//   - [PowerSpectrum]: mean-removed magnitude spectrum
//   - [TrajectoryToASCII]: scatter plot of a 2D path such as the tip
//     trajectory in side view
package analysis
