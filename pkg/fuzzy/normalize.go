package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]?\s*(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]?\s*`)
	noiseRegex      = regexp.MustCompile(`(?i)[\(\[][^\)\]]*(?:official|video|audio|lyrics?|visuali[sz]er|hd|hq|4k|mv)[^\)\]]*[\)\]]`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s&]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Normalizer reduces titles and artist names found on third-party pages to a
// comparable form.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) NormalizeArtist(artist string) string {
	artist = n.basicNormalize(artist)

	artist = strings.ReplaceAll(artist, " and ", " & ")
	artist = strings.TrimPrefix(artist, "the ")

	return artist
}

// NormalizeTitle drops featured artists and upload noise such as "(Official Video)".
func (n *Normalizer) NormalizeTitle(title string) string {
	title = noiseRegex.ReplaceAllString(title, " ")
	title = featRegex.ReplaceAllString(title, " ")

	return n.basicNormalize(title)
}

func (n *Normalizer) basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	text = strings.TrimSpace(text)

	return text
}

// Plausible reports whether a hit titled hitTitle by hitArtist looks like the
// wanted track. Titles are compared after normalization; the artist only counts
// when both sides have one.
func (n *Normalizer) Plausible(hitTitle, hitArtist, wantTitle, wantArtist string) bool {
	titleScore := Score(n.NormalizeTitle(hitTitle), n.NormalizeTitle(wantTitle))
	if hitArtist == "" || wantArtist == "" {
		return titleScore >= plausibleTitleScore
	}
	artistScore := Score(n.NormalizeArtist(hitArtist), n.NormalizeArtist(wantArtist))
	return titleScore >= plausibleTitleScore && artistScore >= plausibleArtistScore
}

// DurationDelta scores how close two durations in seconds are, from 1 (within
// 30s) down to 0 (two minutes or more apart). Unknown durations score 1.
func (n *Normalizer) DurationDelta(a, b int) float64 {
	if a <= 0 || b <= 0 {
		return 1.0
	}

	diff := a - b
	if diff < 0 {
		diff = -diff
	}

	const tolerance, maxDiff = 30, 120
	if diff <= tolerance {
		return 1.0
	}
	if diff >= maxDiff {
		return 0.0
	}

	return 1.0 - float64(diff-tolerance)/float64(maxDiff-tolerance)
}

const (
	plausibleTitleScore  = 60
	plausibleArtistScore = 50
)
