package haproxy

// Option configures a Decoder at construction time, matching the
// teacher's functional-options idiom (see option.go's Option
// func(*Conn)).
type Option func(*Decoder)

// WithMaxTLVSize bounds the total size of the v2 TLV section, in
// [0, 65319] per spec.md §6. Values outside that range are clamped.
func WithMaxTLVSize(n int) Option {
	return func(d *Decoder) {
		if n < 0 {
			n = 0
		}
		if n > maxTLVSizeCeiling {
			n = maxTLVSizeCeiling
		}
		d.maxTLVSize = n
	}
}

// WithMaxV2FrameSize bounds the total size of a v2 frame (16-byte fixed
// prefix + address block + TLV section), in [16+216, 16+65535] per
// spec.md §4.2/§6. Values outside that range are clamped. A frame that
// declares a larger total while not all of its bytes are readable yet
// is discarded and resynced on its own boundary; a frame whose bytes
// are all readable already is parsed regardless of this bound.
func WithMaxV2FrameSize(n int) Option {
	return func(d *Decoder) {
		if n < maxV2FrameSizeFloor {
			n = maxV2FrameSizeFloor
		}
		if n > maxV2FrameSizeCeil {
			n = maxV2FrameSizeCeil
		}
		d.maxV2FrameSize = n
	}
}
