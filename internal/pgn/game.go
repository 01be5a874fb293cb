// Package pgn reads PGN files: it splits them into games, tokenizes the
// movetext with its variations and comments, and replays it into a
// variation tree.
package pgn

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
)

const (
	GameResultNone     = "*"
	GameResultWhiteWin = "1-0"
	GameResultBlackWin = "0-1"
	GameResultDraw     = "1/2-1/2"
)

type Tag struct {
	Key   string
	Value string
}

type GameRaw struct {
	Tags    []Tag
	BodyRaw string
}

func (g *GameRaw) TagValue(key string) (string, bool) {
	for _, tag := range g.Tags {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}

// StartFEN returns the FEN tag, or "" for the standard start position.
func (g *GameRaw) StartFEN() string {
	if fen, ok := g.TagValue("FEN"); ok {
		return fen
	}
	return ""
}

func WalkPgnFile(
	filepath string,
	onGame func(GameRaw) error,
) error {
	file, err := os.Open(filepath)
	if err != nil {
		return err
	}
	defer file.Close()
	return WalkPgn(file, onGame)
}

// WalkPgn calls onGame for every game of r. A game is a block of tag lines
// followed by movetext; movetext without tags is accepted as a single game.
func WalkPgn(
	r io.Reader,
	onGame func(GameRaw) error,
) error {
	var tags []Tag
	var body = &strings.Builder{}
	var hasBody bool

	var flush = func() error {
		if !hasBody || strings.TrimSpace(body.String()) == "" {
			return nil
		}
		var err = onGame(GameRaw{
			Tags:    tags,
			BodyRaw: body.String(),
		})
		hasBody = false
		tags = nil
		body.Reset()
		return err
	}

	var scanner = bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var line = strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "%") {
			// escape line
			continue
		}
		if strings.HasPrefix(line, "[") {
			if hasBody {
				if err := flush(); err != nil {
					return err
				}
			}
			if m := tagPairRegex.FindStringSubmatch(line); m != nil {
				tags = append(tags, Tag{Key: m[1], Value: m[2]})
			}
			continue
		}
		line = stripLineComment(line)
		if line == "" {
			continue
		}
		hasBody = true
		body.WriteString(line)
		body.WriteString(" ")
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

// ReadGames returns every game of r.
func ReadGames(r io.Reader) ([]GameRaw, error) {
	var games []GameRaw
	var err = WalkPgn(r, func(g GameRaw) error {
		games = append(games, g)
		return nil
	})
	return games, err
}

// stripLineComment drops a ';' comment unless it is inside braces.
func stripLineComment(line string) string {
	var depth int
	for i, r := range line {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return line
}

var tagPairRegex = regexp.MustCompile(`^\[(\w+)\s+"(.*)"\]$`)
