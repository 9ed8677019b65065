// Package metadata derives per-frame records from imager frame filenames.
//
// Frame files follow the naming contract
//
//	YYYYMMDD_HHMMSS_<site>_<device>_<mode>_<exposure>ms.png
//
// and carry everything the reader knows about a frame: capture start, the
// site/device/mode identifiers and the requested exposure. Parse is pure and
// performs no I/O; Format renders the canonical basename back.
package metadata
