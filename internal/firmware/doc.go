// Package firmware provides the catalog of known controller firmwares.
//
// Each entry describes one firmware build, identified by the LMP subversion
// the controller reports in HCI Read Local Version Information, together with
// its memory section table and a set of named constants.
//
// The catalog is embedded from firmwares/firmwares.yaml and loaded once:
//
//	cat, err := firmware.Load()
//	if err != nil {
//	    return err
//	}
//	fw, ok := cat.Lookup(0x6119)
//
// Additional entries can be merged from a user file with LoadFile, so new
// targets need only data.
package firmware
