// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package resource

import (
	"io"
	"net/http"
	"os"

	"github.com/uber/kraken/domtypes"
	"github.com/uber/kraken/utils/log"
)

const _loadChunkSize = 32 * 1024

// fileLoaderFactory builds the built-in "file" scheme loader, which reads
// the url's path from the local filesystem.
func fileLoaderFactory(config Config) LoaderFactory {
	return func(url domtypes.URL, progress chan<- domtypes.ProgressChunk) {
		f, err := os.Open(url.Path())
		if err != nil {
			log.Warnf("resource: file loader: open %s: %s", url, err)
			progress <- domtypes.Done(domtypes.ProgressErr)
			return
		}
		defer f.Close()
		streamAll(f, config.SizeLimit.Bytes(), progress)
	}
}

// httpLoaderFactory builds the built-in "http" scheme loader.
func httpLoaderFactory(config Config) LoaderFactory {
	client := &http.Client{Timeout: config.httpTimeout()}
	return func(url domtypes.URL, progress chan<- domtypes.ProgressChunk) {
		resp, err := client.Get(url.String())
		if err != nil {
			log.Warnf("resource: http loader: get %s: %s", url, err)
			progress <- domtypes.Done(domtypes.ProgressErr)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			log.Warnf("resource: http loader: %s returned status %d", url, resp.StatusCode)
			progress <- domtypes.Done(domtypes.ProgressErr)
			return
		}
		streamAll(resp.Body, config.SizeLimit.Bytes(), progress)
	}
}

// streamAll reads r in chunks, sending each as a Payload, then sends the
// terminal Done chunk. A non-zero limit aborts the load with Done(Err) once
// exceeded.
func streamAll(r io.Reader, limit uint64, progress chan<- domtypes.ProgressChunk) {
	var total uint64
	buf := make([]byte, _loadChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += uint64(n)
			if limit > 0 && total > limit {
				progress <- domtypes.Done(domtypes.ProgressErr)
				return
			}
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			progress <- domtypes.Payload(chunk)
		}
		if err == io.EOF {
			progress <- domtypes.Done(domtypes.ProgressOk)
			return
		}
		if err != nil {
			progress <- domtypes.Done(domtypes.ProgressErr)
			return
		}
	}
}
