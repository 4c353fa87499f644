// Package sim provides an offline instrument driver with plausible
// canned state. It backs development setups and tests that have no
// microscope attached, and is the default driver of the server binary.
//
// Stage coordinates are micrometers for x/y/z and degrees for the a/b
// tilt axes. Acquired images are synthetic 16-bit gradients with
// deterministic noise, sized according to the requested readout area
// and binning.
package sim
