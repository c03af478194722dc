// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history keeps the parameters of successful API calls.
package history

import (
	"sync"

	"github.com/stockparfait/alphavantage/params"
	"github.com/stockparfait/errors"
)

// History of calls in chronological order. It is safe for concurrent use.
type History struct {
	mu       sync.Mutex
	capacity int
	records  []params.Params
	start    int // position of the oldest record when the buffer is full
}

// New creates a History keeping at most capacity most recent records; 0
// means keeping all of them.
func New(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{capacity: capacity}
}

// Capacity of the history, 0 being unlimited.
func (h *History) Capacity() int { return h.capacity }

// Append a copy of p as the most recent record, evicting the oldest one when
// the history is full.
func (h *History) Append(p params.Params) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p = p.Copy()
	if h.capacity == 0 || len(h.records) < h.capacity {
		h.records = append(h.records, p)
		return
	}
	h.records[h.start] = p
	h.start = (h.start + 1) % h.capacity
}

// Len is the number of records currently kept.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// at returns the i-th oldest record; must be called under lock.
func (h *History) at(i int) params.Params {
	return h.records[(h.start+i)%len(h.records)]
}

// All records, oldest first.
func (h *History) All() []params.Params {
	h.mu.Lock()
	defer h.mu.Unlock()

	res := make([]params.Params, len(h.records))
	for i := range res {
		res[i] = h.at(i).Copy()
	}
	return res
}

// Last returns the n-th most recent record, n = 1 being the latest.
func (h *History) Last(n int) (params.Params, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n < 1 || n > len(h.records) {
		return nil, errors.Reason("no record #%d in history of %d", n, len(h.records))
	}
	return h.at(len(h.records) - n).Copy(), nil
}

// Tail returns up to n most recent records, oldest first.
func (h *History) Tail(n int) []params.Params {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > len(h.records) {
		n = len(h.records)
	}
	if n < 0 {
		n = 0
	}
	res := make([]params.Params, n)
	for i := range res {
		res[i] = h.at(len(h.records) - n + i).Copy()
	}
	return res
}
