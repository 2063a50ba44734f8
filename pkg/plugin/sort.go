// Copyright 2016-2024, Pulumi Corporation.
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

package plugin

import "sort"

// SortByPriority orders plugins by descending Priority, breaking ties by
// ascending Key, then by original registration order (spec.md §4.5). The
// input slice is not mutated; a new, sorted slice is returned.
func SortByPriority(plugins []Plugin) []Plugin {
	indexed := make([]indexedPlugin, len(plugins))
	for i, p := range plugins {
		indexed[i] = indexedPlugin{plugin: p, registrationIdx: i}
	}
	sort.SliceStable(indexed, func(i, j int) bool {
		a, b := indexed[i], indexed[j]
		if a.plugin.Priority() != b.plugin.Priority() {
			return a.plugin.Priority() > b.plugin.Priority()
		}
		if a.plugin.Key() != b.plugin.Key() {
			return a.plugin.Key() < b.plugin.Key()
		}
		return a.registrationIdx < b.registrationIdx
	})
	out := make([]Plugin, len(indexed))
	for i, ip := range indexed {
		out[i] = ip.plugin
	}
	return out
}

type indexedPlugin struct {
	plugin          Plugin
	registrationIdx int
}
