package gitlab

import (
	"encoding/base64"
	"fmt"
)

// decodeContent decodes file content according to the
// encoding reported by the files API. GitLab uses
// "base64" for binary-safe transport and "text" for
// raw content.
func decodeContent(
	content string,
	encoding string,
) ([]byte, error) {
	switch encoding {
	case "", "text":
		return []byte(content), nil
	case "base64":
		return base64.StdEncoding.DecodeString(
			content,
		)
	default:
		return nil, fmt.Errorf(
			"unsupported content encoding %q",
			encoding,
		)
	}
}
