// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"go.astrophena.name/logospin/internal/version"
)

// SendDocumentParams are the arguments of the sendDocument method.
type SendDocumentParams struct {
	ChatID   int64
	FileName string
	Caption  string
	Data     io.Reader
}

// SendDocument uploads a file to a chat as a document. Unlike other methods,
// sendDocument requires a multipart request because the file contents travel
// in the request body.
func (c *Client) SendDocument(ctx context.Context, p SendDocumentParams) (Message, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("chat_id", strconv.FormatInt(p.ChatID, 10)); err != nil {
		return Message{}, err
	}
	if p.Caption != "" {
		if err := mw.WriteField("caption", p.Caption); err != nil {
			return Message{}, err
		}
	}
	fw, err := mw.CreateFormFile("document", p.FileName)
	if err != nil {
		return Message{}, err
	}
	if _, err := io.Copy(fw, p.Data); err != nil {
		return Message{}, err
	}
	if err := mw.Close(); err != nil {
		return Message{}, err
	}

	url := c.api() + "/bot" + c.Token + "/sendDocument"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return Message{}, c.scrubErr(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := c.httpc().Do(req)
	if err != nil {
		return Message{}, c.scrubErr(err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return Message{}, c.scrubErr(err)
	}
	if res.StatusCode != http.StatusOK {
		return Message{}, c.scrubErr(fmt.Errorf("sendDocument: want 200, got %d: %s", res.StatusCode, b))
	}

	var resp response[Message]
	if err := json.Unmarshal(b, &resp); err != nil {
		return Message{}, c.scrubErr(err)
	}
	if !resp.OK {
		return Message{}, fmt.Errorf("sendDocument: telegram API error: %s", resp.Description)
	}
	return resp.Result, nil
}
