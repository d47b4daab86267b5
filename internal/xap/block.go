// Copyright 2025 Arion Yau
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

// Package xap implements the text block grammar of the xAP home automation
// protocol: a message is a sequence of named blocks, each a brace-delimited
// list of key=value lines.
package xap

import (
	"fmt"
	"strings"
)

// Item is a single key/value line inside a block.
// Binary items use '!' instead of '=' and carry a hex encoded value.
type Item struct {
	Key    string
	Value  string
	Binary bool
}

// Block is a named section of an xAP message
type Block struct {
	Name  string
	Items []Item
}

// NewBlock creates a block with the given name and items
func NewBlock(name string, items ...Item) *Block {
	return &Block{Name: name, Items: items}
}

// Add appends a text item to the block and returns the block for chaining
func (b *Block) Add(key string, value interface{}) *Block {
	b.Items = append(b.Items, Item{Key: key, Value: fmt.Sprint(value)})
	return b
}

// Get returns the value of the first item matching key, case-insensitively
func (b *Block) Get(key string) (string, bool) {
	for _, item := range b.Items {
		if strings.EqualFold(item.Key, key) {
			return item.Value, true
		}
	}
	return "", false
}

// String serializes the block in wire format
func (b *Block) String() string {
	var sb strings.Builder
	sb.WriteString(b.Name)
	sb.WriteString("\n{\n")
	for _, item := range b.Items {
		sb.WriteString(item.Key)
		if item.Binary {
			sb.WriteByte('!')
		} else {
			sb.WriteByte('=')
		}
		sb.WriteString(item.Value)
		sb.WriteByte('\n')
	}
	sb.WriteString("}\n")
	return sb.String()
}

// Bytes serializes the block in wire format
func (b *Block) Bytes() []byte {
	return []byte(b.String())
}

// Encode serializes a sequence of blocks into one message
func Encode(blocks ...*Block) []byte {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.String())
	}
	return []byte(sb.String())
}

type parseState int

const (
	expectName parseState = iota
	expectOpen
	expectItem
)

// ParseBlocks parses raw message text into blocks.
// Parsing stops at the first malformed line; the blocks completed before it
// are returned, so garbage input yields an empty slice rather than an error.
func ParseBlocks(raw []byte) []*Block {
	var (
		blocks  []*Block
		current *Block
		state   = expectName
	)

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch state {
		case expectName:
			if strings.ContainsAny(trimmed, "{}=!") {
				return blocks
			}
			current = &Block{Name: trimmed}
			state = expectOpen

		case expectOpen:
			if trimmed != "{" {
				return blocks
			}
			state = expectItem

		case expectItem:
			if trimmed == "}" {
				blocks = append(blocks, current)
				current = nil
				state = expectName
				continue
			}
			item, ok := parseItem(trimmed)
			if !ok {
				return blocks
			}
			current.Items = append(current.Items, item)
		}
	}

	return blocks
}

// parseItem splits a key=value or key!hex line
func parseItem(line string) (Item, bool) {
	idx := strings.IndexAny(line, "=!")
	if idx <= 0 {
		return Item{}, false
	}
	key := strings.TrimSpace(line[:idx])
	if key == "" {
		return Item{}, false
	}
	return Item{
		Key:    key,
		Value:  line[idx+1:],
		Binary: line[idx] == '!',
	}, true
}
