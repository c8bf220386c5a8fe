package dzfmt

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sargunv/dzarchive/internal/dzerr"
)

// readNullTerminated reads one NUL-terminated string from r, returning
// it without the terminator. Mirrors the null-terminated ASCII table
// convention the DZ format inherits from its C++ origin.
func readNullTerminated(r *bufio.Reader) (string, error) {
	s, err := r.ReadString(0)
	if err != nil {
		if err == io.EOF {
			return "", fmt.Errorf("%w: unterminated string", dzerr.ErrTruncated)
		}
		return "", err
	}
	return s[:len(s)-1], nil
}

// writeNullTerminated writes s followed by a single NUL byte.
func writeNullTerminated(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}
