package bot

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/number-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/number-bot/internal/errors"
)

const (
	defaultFileTimeout  = 30 * time.Second
	defaultMaxFileBytes = 1 << 20
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FileSource downloads a file stored on the telegram servers.
type FileSource interface {
	File(file *telebot.File) (io.ReadCloser, error)
}

// TelegramFetcher downloads uploaded text files with a bounded wait and retries transient failures.
type TelegramFetcher struct {
	src      FileSource
	timeout  time.Duration
	maxBytes int64
	log      *slog.Logger
}

// NewTelegramFetcher creates a fetcher. Non-positive limits fall back to defaults.
func NewTelegramFetcher(src FileSource, timeout time.Duration, maxBytes int64, log *slog.Logger) *TelegramFetcher {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultFileTimeout
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxFileBytes
	}

	return &TelegramFetcher{src: src, timeout: timeout, maxBytes: maxBytes, log: log}
}

type fetchResult struct {
	data []byte
	err  error
}

// Fetch returns the file content as text. The whole call, retries included, is bounded by the timeout.
func (f *TelegramFetcher) Fetch(ctx context.Context, ref handlers.FileRef) (string, error) {
	if ref.Size > f.maxBytes {
		return "", apperrors.NewRetrievalError(fmt.Errorf("file is larger than %d bytes", f.maxBytes), false)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var content string
	err := apperrors.WithRetry(ctx, func() error {
		data, err := f.download(ctx, ref)
		if err != nil {
			f.log.Debug("file download attempt failed", "file_id", ref.ID, "error", err)
			return err
		}

		content, err = decodeText(data, f.maxBytes)
		return err
	})
	if err != nil {
		return "", err
	}

	return content, nil
}

func (f *TelegramFetcher) download(ctx context.Context, ref handlers.FileRef) ([]byte, error) {
	done := make(chan fetchResult, 1)

	go func() {
		rc, err := f.src.File(&telebot.File{FileID: ref.ID})
		if err != nil {
			done <- fetchResult{err: err}
			return
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, f.maxBytes+1))
		done <- fetchResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, apperrors.NewRetrievalError(stderrors.New("download timed out"), true)
	case res := <-done:
		if res.err != nil {
			return nil, apperrors.NewRetrievalError(res.err, true)
		}
		return res.data, nil
	}
}

func decodeText(data []byte, maxBytes int64) (string, error) {
	if int64(len(data)) > maxBytes {
		return "", apperrors.NewRetrievalError(fmt.Errorf("file is larger than %d bytes", maxBytes), false)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", apperrors.NewRetrievalError(stderrors.New("file is not valid UTF-8 text"), false)
	}

	return string(data), nil
}
