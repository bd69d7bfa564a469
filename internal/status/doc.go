// Package status samples CPU and memory usage and publishes a one-line
// status string on a wall-clock aligned schedule.
package status
