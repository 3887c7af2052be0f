// Package symbol assigns short display symbols to component names and resolves them back.
package symbol

import "unicode"

// Pools holds the candidate symbols: one ordered pool per lower-case initial letter
// plus a shared fallback pool used when a letter pool runs dry.
type Pools struct {
	PerLetter map[rune][]string
	Fallback  []string
	// Reserved symbols are never handed out or pinned.
	Reserved []string
}

// WithReserved returns a copy of p that also reserves syms.
func (p Pools) WithReserved(syms ...string) Pools {
	p.Reserved = append(append([]string(nil), p.Reserved...), syms...)
	return p
}

// DefaultPools returns the built-in pools. Glyphs never overlap with DSL delimiters
// (`,[]{}×*=:"'` and whitespace).
func DefaultPools() Pools {
	return Pools{
		PerLetter: map[rune][]string{
			'a': {"α", "ά", "ǎ", "ȧ", "ạ", "ả", "⍺", "ą"},
			'b': {"Ƀ", "ƀ", "ᵬ", "ḃ", "ḅ", "ḇ", "ɓ", "β"},
			'c': {"¢", "ç", "ć", "ĉ", "ċ", "č", "ƈ", "ȼ"},
			'd': {"δ", "ď", "đ", "ḋ", "ḍ", "ḏ", "ɖ", "ɗ"},
			'e': {"ε", "ė", "ę", "ě", "ȩ", "ẹ", "ẻ", "℮"},
			'f': {"ḟ", "ꞙ", "ϝ", "ℱ", "ꝼ", "ᵮ", "ᶂ"},
			'g': {"ǥ", "ğ", "ġ", "ģ", "ǧ", "ǵ", "ɠ", "ḡ"},
			'h': {"ħ", "ĥ", "ḣ", "ḥ", "ḧ", "ḩ", "ɦ", "ℏ"},
			'i': {"ι", "ĩ", "ī", "ĭ", "į", "ɨ", "ỉ", "ị"},
			'j': {"ĵ", "ǰ", "ɉ", "ʝ", "ȷ"},
			'k': {"ķ", "ƙ", "ǩ", "ḱ", "ḳ", "ḵ", "κ"},
			'l': {"λ", "ĺ", "ļ", "ľ", "ŀ", "ł", "ḷ", "ℓ"},
			'm': {"μ", "ḿ", "ṁ", "ṃ", "ɱ", "ₘ"},
			'n': {"η", "ń", "ņ", "ň", "ṅ", "ṇ", "ɲ", "ñ"},
			'o': {"ο", "ō", "ŏ", "ő", "ơ", "ǒ", "ȯ", "ø"},
			'p': {"ρ", "π", "ṕ", "ṗ", "ƥ", "℘", "¶"},
			'q': {"ʠ", "ɋ", "ϙ", "ℚ"},
			'r': {"ŕ", "ŗ", "ř", "ṙ", "ṛ", "ɍ", "ɽ", "ℜ"},
			's': {"§", "ś", "ŝ", "ş", "š", "ṡ", "ṣ", "ʂ"},
			't': {"τ", "ţ", "ť", "ŧ", "ṫ", "ṭ", "ƭ", "ʈ"},
			'u': {"υ", "ũ", "ū", "ŭ", "ů", "ű", "ų", "ư"},
			'v': {"ν", "ṽ", "ṿ", "ʋ", "ⱱ"},
			'w': {"ω", "ŵ", "ẁ", "ẃ", "ẅ", "ẇ", "ẉ"},
			'x': {"χ", "ẋ", "ẍ", "ₓ"},
			'y': {"ý", "ÿ", "ŷ", "ẏ", "ỳ", "ƴ", "ψ"},
			'z': {"ζ", "ź", "ż", "ž", "ẓ", "ƶ", "ʐ"},
		},
		Fallback: []string{
			"◆", "◇", "○", "●", "□", "■", "△", "▲", "▽", "▼",
			"◈", "◉", "◎", "♠", "♣", "♥", "♦", "♪", "♫", "⌘",
			"⌂", "⚙", "⚑", "✪", "✱", "✲", "✳", "✴", "✵", "✶",
			"✷", "✸", "❖", "❋", "★",
		},
	}
}

// Size returns the total number of symbols across all pools.
func (p Pools) Size() int {
	n := len(p.Fallback)
	for _, pool := range p.PerLetter {
		n += len(pool)
	}
	return n
}

// initial returns the lower-cased first letter of name, or 0 when name does not
// start with a letter.
func initial(name string) rune {
	for _, r := range name {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return 0
	}
	return 0
}
