package domain

import "time"

// Brisbane is Queensland civil time. Queensland does not observe daylight
// saving, so a fixed offset is exact.
var Brisbane = time.FixedZone("AEST", 10*60*60)

// brisbaneOffset is appended to caption times, which are printed without one.
const brisbaneOffset = " +1000"
