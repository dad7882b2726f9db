// Copyright 2025 The Chainmap Authors
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

// wordfreq counts word frequencies in a text file with a chainmap.Map and
// prints the most frequent words along with the map's bucket statistics.
//
// Usage:
//
//	wordfreq [-top n] [-skip-proper] [file]
//
// With no file argument it reads /usr/share/dict/words, in which every
// word occurs once; the bucket statistics are then a quick look at how
// evenly djb2 spreads a real dictionary.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/chainmap/chainmap"
)

func main() {
	top := flag.Int("top", 10, "number of most frequent words to print")
	skipProper := flag.Bool("skip-proper", false, "skip capitalized words")
	flag.Parse()

	filename := "/usr/share/dict/words"
	if flag.NArg() > 0 {
		filename = flag.Arg(0)
	}

	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	m := chainmap.New[int]()

	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		word := strings.TrimFunc(scanner.Text(), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word == "" {
			continue
		}
		if *skipProper && unicode.IsUpper([]rune(word)[0]) {
			continue
		}

		it, _, err := m.Insert(word)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		*it.Value()++
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	type freq struct {
		word  string
		count int
	}
	words := make([]freq, 0, m.Len())
	m.All(func(word string, count *int) bool {
		words = append(words, freq{word, *count})
		return true
	})
	sort.Slice(words, func(i, j int) bool {
		if words[i].count != words[j].count {
			return words[i].count > words[j].count
		}
		return words[i].word < words[j].word
	})

	if *top > len(words) {
		*top = len(words)
	}
	for _, w := range words[:*top] {
		fmt.Printf("%8d %s\n", w.count, w.word)
	}
	fmt.Printf("size %d\n", m.Len())
	fmt.Printf("buckets %d\n", m.BucketCount())
	fmt.Printf("load factor %f\n", m.LoadFactor())
}
