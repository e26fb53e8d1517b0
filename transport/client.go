// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package transport implements the bulletin board's HTTP
// plumbing (§4.8): a fetch-with-timeout client used by the wait
// protocol, and a whitelist static file server used to publish
// a party's messages and signatures.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"
)

// ErrNoContentLength is returned by Fetch when the server's
// response omits Content-Length.
var ErrNoContentLength = errors.New("transport: response has no Content-Length")

// ErrTooLarge is returned by Fetch when Content-Length exceeds
// maxBytes.
var ErrTooLarge = errors.New("transport: content length exceeds maximum")

// DefaultClient is the HTTP client used for every Fetch call:
// short connection timeouts and no transparent response
// decompression, since bulletin-board payloads are already the
// raw wire encoding.
var DefaultClient = http.Client{
	Transport: &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConnsPerHost:   5,
		DisableCompression:    true,
		DialContext: (&net.Dialer{
			Timeout: 2 * time.Second,
		}).DialContext,
	},
}

// Fetch issues a GET to url and copies at most maxBytes of the
// response body into sink, returning whether the download
// completed and how long it took. A non-OK status, a transport
// failure or a short body is a failure (ok=false) with a nil
// error; a missing Content-Length returns ErrNoContentLength and
// one exceeding maxBytes returns ErrTooLarge, both with ok=false.
// Callers in the wait loop treat every ok=false alike as "try
// again later" (§4.10).
//
// readTimeoutMs of zero is treated as one millisecond; negative
// is treated as no timeout (§4.8).
func Fetch(url string, sink io.Writer, readTimeoutMs int, maxBytes int64) (ok bool, elapsedMs int64, err error) {
	start := time.Now()
	ctx := context.Background()
	var cancel context.CancelFunc
	if readTimeoutMs >= 0 {
		d := time.Duration(readTimeoutMs) * time.Millisecond
		if d <= 0 {
			d = time.Millisecond
		}
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, 0, err
	}
	resp, err := DefaultClient.Do(req)
	if err != nil {
		return false, elapsedMsSince(start), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, elapsedMsSince(start), nil
	}
	if resp.ContentLength < 0 {
		return false, elapsedMsSince(start), ErrNoContentLength
	}
	if resp.ContentLength > maxBytes {
		return false, elapsedMsSince(start), ErrTooLarge
	}
	n, err := io.CopyN(sink, resp.Body, resp.ContentLength)
	if err != nil || n != resp.ContentLength {
		return false, elapsedMsSince(start), nil
	}
	return true, elapsedMsSince(start), nil
}

func elapsedMsSince(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
