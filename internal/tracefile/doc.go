// Package tracefile implements the on-disk format used to record and replay
// transport traffic.
//
// A trace file starts with the 8-byte magic "HCISHTR1" followed by frames:
//
//	+-----------+------------------+-----------------+
//	| direction | length (uint32)  | payload         |
//	| 1 byte    | 4 bytes, BE      | length bytes    |
//	+-----------+------------------+-----------------+
//
// Direction is 0x01 for bytes sent to the controller and 0x02 for bytes
// received from it. Frames are self-delimiting, so a file that was cut short
// mid-frame is detected (ErrTruncated) while a file that ends on a frame
// boundary is complete.
package tracefile
