package cmn

import "time"

// NowRFC3339 is the one clock every storage-engine operation reads,
// formatted the way every emulated service's timestamp fields expect.
func NowRFC3339() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// ParseRFC3339 parses a timestamp previously produced by NowRFC3339.
func ParseRFC3339(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }
