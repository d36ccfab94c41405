package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mediocregopher/respfeed/resp"
)

// replyLines formats a reply the way redis-cli does, one output line per
// scalar, with array elements numbered and nested arrays indented.
func replyLines(m resp.Message) []string {
	switch {
	case m.Nil:
		return []string{"(nil)"}
	case m.Kind == resp.Error:
		return []string{"(error) " + m.Text}
	case m.Kind == resp.Int:
		return []string{"(integer) " + m.Text}
	case m.Kind == resp.Bulk:
		return []string{strconv.Quote(string(m.Bytes()))}
	case m.Kind == resp.Status:
		return []string{string(m.Bytes())}
	case len(m.Elems) == 0:
		return []string{"(empty array)"}
	}

	width := len(strconv.Itoa(len(m.Elems)))
	var lines []string
	for i := range m.Elems {
		idx := fmt.Sprintf("%*d) ", width, i+1)
		pad := strings.Repeat(" ", len(idx))
		for j, l := range replyLines(m.Elems[i]) {
			if j == 0 {
				lines = append(lines, idx+l)
			} else {
				lines = append(lines, pad+l)
			}
		}
	}
	return lines
}

func writeReply(w io.Writer, m resp.Message) error {
	for _, l := range replyLines(m) {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
