// Package views reshapes the engine's REST payloads for the configuration,
// forecast and weather panes. Key order of the source documents is preserved.
package views

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Pane is an insertion-ordered JSON object.
type Pane = orderedmap.OrderedMap[string, json.RawMessage]

// KeySeparator joins a top-level key with the key of its nested value.
const KeySeparator = " > "

// FlattenConfig unwinds one level of nesting: object members become
// "key > inner" entries, array elements "key > index"; scalars are kept.
func FlattenConfig(raw []byte) (*Pane, error) {
	top := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, top); err != nil {
		return nil, fmt.Errorf("config is not an object: %w", err)
	}

	out := orderedmap.New[string, json.RawMessage]()
	for pair := top.Oldest(); pair != nil; pair = pair.Next() {
		value := bytes.TrimSpace(pair.Value)
		switch {
		case len(value) > 0 && value[0] == '{':
			inner := orderedmap.New[string, json.RawMessage]()
			if err := json.Unmarshal(value, inner); err != nil {
				return nil, fmt.Errorf("config key %q: %w", pair.Key, err)
			}
			for p := inner.Oldest(); p != nil; p = p.Next() {
				out.Set(pair.Key+KeySeparator+p.Key, p.Value)
			}
		case len(value) > 0 && value[0] == '[':
			var items []json.RawMessage
			if err := json.Unmarshal(value, &items); err != nil {
				return nil, fmt.Errorf("config key %q: %w", pair.Key, err)
			}
			for i, item := range items {
				out.Set(pair.Key+KeySeparator+strconv.Itoa(i), item)
			}
		default:
			out.Set(pair.Key, value)
		}
	}
	return out, nil
}

// ForecastGroups maps a forecast file name to its forecasts.
type ForecastGroups = orderedmap.OrderedMap[string, []json.RawMessage]

// GroupForecasts groups a list of forecasts by their file_name, in first-seen order.
func GroupForecasts(raw []byte) (*ForecastGroups, error) {
	var forecasts []json.RawMessage
	if err := json.Unmarshal(raw, &forecasts); err != nil {
		return nil, fmt.Errorf("forecasts are not a list: %w", err)
	}

	groups := orderedmap.New[string, []json.RawMessage]()
	for _, f := range forecasts {
		var head struct {
			FileName string `json:"file_name"`
		}
		// Non-object entries and missing names fall into the "" group.
		_ = json.Unmarshal(f, &head)

		list, _ := groups.Get(head.FileName)
		groups.Set(head.FileName, append(list, f))
	}
	return groups, nil
}

// WeatherIndex maps a weather value to the comma separated names that carry it.
type WeatherIndex = orderedmap.OrderedMap[string, string]

// InvertWeather turns {name: value} into {value: "name1, name2"}.
func InvertWeather(raw []byte) (*WeatherIndex, error) {
	data := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("weather data is not an object: %w", err)
	}

	out := orderedmap.New[string, string]()
	for pair := data.Oldest(); pair != nil; pair = pair.Next() {
		key := scalarText(pair.Value)
		if names, ok := out.Get(key); ok {
			out.Set(key, names+", "+pair.Key)
			continue
		}
		out.Set(key, pair.Key)
	}
	return out, nil
}

func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
