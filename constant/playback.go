package constant

// StreamMarker identifies a directly playable HLS stream URL.
const StreamMarker = ".m3u8"

// PlaybackRates is the fixed set of selectable playback speeds.
var PlaybackRates = []float64{0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0}

// BoostRate is the temporary playback speed applied while a long-press is held.
const BoostRate = 2.0
