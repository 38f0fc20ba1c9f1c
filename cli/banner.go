package cli

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/caarlos0/env/v11"
)

// Alignment positions banner text inside the box.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

const (
	boxTopLeft     = "╒"
	boxTopRight    = "╕"
	boxTop         = "═"
	boxBottomLeft  = "└"
	boxBottomRight = "┘"
	boxBottom      = "─"
	boxSide        = "│"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"
	ellipsis       = "…"

	// DefaultTerminalWidth is used when COLUMNS is unset.
	DefaultTerminalWidth = 80

	borderWidth = 2
)

type bannerEnv struct {
	NoBanner bool `env:"FSMCTL_NO_BANNER" envDefault:"false"`
	Columns  int  `env:"COLUMNS"          envDefault:"80"`
}

var loadBannerEnv = sync.OnceValue(func() bannerEnv { //nolint:gochecknoglobals
	cfg, err := env.ParseAs[bannerEnv]()
	if err != nil {
		return bannerEnv{Columns: DefaultTerminalWidth}
	}

	return cfg
})

// TerminalWidth returns the width from COLUMNS, or DefaultTerminalWidth.
func TerminalWidth() int {
	if w := loadBannerEnv().Columns; w > borderWidth {
		return w
	}

	return DefaultTerminalWidth
}

// BannerAutoWidth draws a banner as wide as the terminal. FSMCTL_NO_BANNER
// turns banners into plain lines.
func BannerAutoWidth(s string, align Alignment) string {
	if loadBannerEnv().NoBanner {
		return s + "\n"
	}

	return Banner(s, TerminalWidth(), align)
}

// DividerAutoWidth draws a divider as wide as the terminal, or nothing when
// FSMCTL_NO_BANNER is set.
func DividerAutoWidth() string {
	if loadBannerEnv().NoBanner {
		return ""
	}

	return Divider(TerminalWidth())
}

// Divider draws a horizontal rule of the given total width.
func Divider(width int) string {
	if width < borderWidth {
		return ""
	}

	return dividerLeft + strings.Repeat(dividerMiddle, width-borderWidth) + dividerRight + "\n"
}

// Banner draws s inside a box of the given total width. Lines that do not fit
// are truncated with an ellipsis.
func Banner(s string, width int, align Alignment) string {
	if width <= borderWidth || s == "" {
		return ""
	}

	inner := width - borderWidth
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")

	parts := make([]string, 0, len(lines)+2) //nolint:mnd
	parts = append(parts, boxTopLeft+strings.Repeat(boxTop, inner)+boxTopRight)

	for _, l := range lines {
		parts = append(parts, boxSide+pad(l, inner, align)+boxSide)
	}

	parts = append(parts, boxBottomLeft+strings.Repeat(boxBottom, inner)+boxBottomRight)

	return strings.Join(parts, "\n") + "\n"
}

func graphicLen(s string) int {
	n := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			n++
		}
	}

	return n
}

// truncate keeps the first n graphic runes of s.
func truncate(s string, n int) string {
	var sb strings.Builder

	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			if count == n {
				break
			}

			count++
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

func pad(text string, width int, align Alignment) string {
	length := graphicLen(text)
	if length > width {
		text = truncate(text, width-1) + ellipsis
		length = width
	}

	gap := width - length

	switch align {
	case AlignCenter:
		left := gap / 2 //nolint:mnd

		return fmt.Sprintf("%s%s%s", strings.Repeat(" ", left), text, strings.Repeat(" ", gap-left))
	case AlignRight:
		return strings.Repeat(" ", gap) + text
	default:
		return text + strings.Repeat(" ", gap)
	}
}
