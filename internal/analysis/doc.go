// Package analysis aggregates particle measurements into distribution
// statistics.
//
// ComputeStatistics summarizes one metric: count, sample mean and standard
// deviation, extremes, quartiles, geometric mean and standard deviation,
// D-values (D10, D50, D90) and span. FitLognormal fits a lognormal
// distribution with the location fixed at 0 and reports how well its CDF
// matches the empirical one. Histogram and LogHistogram produce binned counts
// for charting.
//
// Quantiles interpolate linearly between order statistics at rank (n-1)·p,
// so D50 equals the median.
//
// Nothing here fails on empty input: statistics come back with Count 0, a
// missing fit is (nil, false) and histograms are empty.
package analysis
