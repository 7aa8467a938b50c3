// aica_adpcm.go - Yamaha ADPCM decoder used by the AICA sample pump (spec
// §4.5 "Sample pump": "the decoder state (predictor, step) is updated using
// the standard Yamaha table").

package dcore

// adpcmQuantTable and adpcmDeltaTable are AICA's Yamaha ADPCM tables, taken
// from original_source/src/libwashdc/hw/aica/adpcm.h's TableQuant/quant_mul
// (itself carried over from MAME's aica.cpp): quantTable rescales the
// running step size by the decoded nibble's low 3 bits (values are
// ADFIX(f) = f*256 for f in {0.8984375, 0.8984375, 0.8984375, 0.8984375,
// 1.19921875, 1.59765625, 2.0, 2.3984375}); deltaTable supplies the signed
// multiplier applied to the previous step to form the sample delta. Only
// entries 0-7 of deltaTable are ever read (the magnitude comes from the low
// 3 bits of the nibble; the sign is applied separately from bit 3), kept at
// 16 entries to match the source table exactly.
var adpcmQuantTable = [8]int32{230, 230, 230, 230, 307, 409, 512, 614}

var adpcmDeltaTable = [16]int32{1, 3, 5, 7, 9, 11, 13, 15, -1, -3, -5, -7, -9, -11, -13, -15}

// adpcmState holds the per-channel decoder state (spec §3 "adpcm predictor,
// adpcm step, adpcm_next_step").
type adpcmState struct {
	predictor int32
	step      int32
}

// reset restores the decoder to its power-on state, used on key-on and on
// loop-end per spec §4.5 ("the first observation of the [loop] condition
// ... resets the ADPCM decoder").
func (s *adpcmState) reset() {
	s.predictor = 0
	s.step = 0x7f
}

// decodeNibble applies one 4-bit ADPCM code and returns the reconstructed
// 16-bit signed sample, following adpcm.h's adpcm_yamaha_expand_nibble: the
// delta is (step * quant_mul[nibble&7]) / 8, clamped to 0x7fff, signed from
// bit 3, and added to the predictor; step is then rescaled by the quant
// table and clamped to [0x7f, 0x6000].
func (s *adpcmState) decodeNibble(nibble uint8) int16 {
	delta := (s.step * adpcmDeltaTable[nibble&7]) / 8
	if delta > 0x7fff {
		delta = 0x7fff
	}
	if nibble&8 != 0 {
		delta = -delta
	}

	sample := s.predictor + delta
	if sample > 32767 {
		sample = 32767
	} else if sample < -32768 {
		sample = -32768
	}
	s.predictor = sample

	s.step = (s.step * adpcmQuantTable[nibble&7]) >> 8
	if s.step < 0x7f {
		s.step = 0x7f
	} else if s.step > 0x6000 {
		s.step = 0x6000
	}

	return int16(s.predictor)
}
