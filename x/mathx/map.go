package mathx

// MapU16 maps x in [inMin,inMax] to [outMin,outMax] with 32-bit intermediates.
// Clamps to out range if input is outside.
func MapU16(x, inMin, inMax, outMin, outMax uint16) uint16 {
	if inMax == inMin {
		return outMin
	}
	if x < inMin {
		return outMin
	}
	if x > inMax {
		return outMax
	}
	num := uint32(x-inMin) * uint32(outMax-outMin)
	den := uint32(inMax - inMin)
	return uint16(uint32(outMin) + num/den)
}

// Level scales a 0..255 brightness to a PWM counter range [0, top].
func Level(brightness uint8, top uint32) uint32 {
	return uint32(brightness) * top / 255
}
