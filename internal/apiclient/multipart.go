package apiclient

import (
	"bytes"
	"io"
	"mime/multipart"
	"sort"
	"strconv"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Upload is a file attached to a multipart form.
type Upload struct {
	Filename string
	Content  io.Reader
}

// encodeMultipart buffers the whole form so the request can be replayed by the
// breaker without re-reading the uploads.
func encodeMultipart(fields map[string]string, files map[string]*Upload) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writer.WriteField(k, fields[k]); err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode form field "+k)
		}
	}

	names := make([]string, 0, len(files))
	for name, upload := range files {
		if upload != nil && upload.Content != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		upload := files[name]
		part, err := writer.CreateFormFile(name, upload.Filename)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode form file "+name)
		}
		if _, err := io.Copy(part, upload.Content); err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload "+name)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close form")
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func itoa(n int) string { return strconv.Itoa(n) }
