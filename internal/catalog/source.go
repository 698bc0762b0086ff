package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Source produces a raw catalog document.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

type fileSource struct {
	path string
}

func FileSource(path string) Source {
	return fileSource{path: path}
}

func (s fileSource) Name() string { return s.path }

func (s fileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.path)
}

type httpSource struct {
	url    string
	client *resty.Client
}

func HTTPSource(url string) Source {
	client := resty.New().
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Accept", "application/json")
	return httpSource{url: url, client: client}
}

func (s httpSource) Name() string { return s.url }

func (s httpSource) Fetch(ctx context.Context) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

type bytesSource struct {
	name string
	data []byte
}

func BytesSource(name string, data []byte) Source {
	return bytesSource{name: name, data: data}
}

func (s bytesSource) Name() string { return s.name }

func (s bytesSource) Fetch(context.Context) ([]byte, error) { return s.data, nil }

// SourceFor picks an HTTP source for URLs and a file source otherwise.
func SourceFor(location string) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return HTTPSource(location)
	}
	return FileSource(location)
}
