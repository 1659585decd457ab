package logger

import (
	"bytes"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

const timeLayout = "2006/01/02 15:04:05.000000"

// prefixFormatter renders "<time> [LEVEL] message key=value ...", the line
// format the serial console and log files have always used.
type prefixFormatter struct{}

func (f *prefixFormatter) Format(e *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(e.Time.Format(timeLayout))
	b.WriteByte(' ')
	b.WriteString(Level(e.Level).prefix())
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
