package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Keys used in entry data and options maps.
const (
	KeyHost     = "host"
	KeyPort     = "port"
	KeyScaleMin = "scale_min"
	KeyScaleMax = "scale_max"
)

// Endpoint defaults.
const (
	DefaultPort     = 3000
	DefaultScaleMin = 0
	DefaultScaleMax = 10000
)

// StatsPath is the path of the peer-counting endpoint on a Hypermind node.
const StatsPath = "/api/stats"

// ErrInvalidScale is returned when scale_min is not strictly below scale_max.
var ErrInvalidScale = errors.New("scale_min must be less than scale_max")

// EndpointConfig is the immutable description of one polled Hypermind node.
type EndpointConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	ScaleMin int    `mapstructure:"scale_min"`
	ScaleMax int    `mapstructure:"scale_max"`
}

// BaseURL returns http://host:port.
func (c EndpointConfig) BaseURL() string {
	return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StatsURL returns the full URL polled on every cycle.
func (c EndpointConfig) StatsURL() string {
	return c.BaseURL() + StatsPath
}

// UniqueID identifies the endpoint across entries. Two entries with the same
// UniqueID describe the same node and are rejected as duplicates.
func (c EndpointConfig) UniqueID() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Title is the human-readable label of a configured endpoint.
func (c EndpointConfig) Title() string {
	return fmt.Sprintf("Hypermind (%s:%d)", c.Host, c.Port)
}

// ValidateScale reports ErrInvalidScale unless ScaleMin < ScaleMax.
// Setup and later option edits both go through this check.
func (c EndpointConfig) ValidateScale() error {
	return ValidateScale(c.ScaleMin, c.ScaleMax)
}

// ValidateScale reports ErrInvalidScale unless scaleMin < scaleMax.
func ValidateScale(scaleMin, scaleMax int) error {
	if scaleMin >= scaleMax {
		return fmt.Errorf("%w (got %d >= %d)", ErrInvalidScale, scaleMin, scaleMax)
	}
	return nil
}

// ResolveEndpoint builds an EndpointConfig from the setup data and the
// post-setup options of an entry.
//
// Host and port come from data only; port defaults to DefaultPort. Each scale
// bound is taken from options when present, otherwise from data, otherwise
// from its default. Values are weakly typed so form input ("3000") and decoded
// JSON (3000.0) both resolve. The scale range is not validated here.
func ResolveEndpoint(data, options map[string]any) (EndpointConfig, error) {
	merged := map[string]any{
		KeyPort:     DefaultPort,
		KeyScaleMin: DefaultScaleMin,
		KeyScaleMax: DefaultScaleMax,
	}
	for _, k := range []string{KeyHost, KeyPort, KeyScaleMin, KeyScaleMax} {
		if v, ok := data[k]; ok && v != nil {
			merged[k] = v
		}
	}
	for _, k := range []string{KeyScaleMin, KeyScaleMax} {
		if v, ok := options[k]; ok && v != nil {
			merged[k] = v
		}
	}

	var out EndpointConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return EndpointConfig{}, fmt.Errorf("endpoint: build decoder: %w", err)
	}
	if err := dec.Decode(merged); err != nil {
		return EndpointConfig{}, fmt.Errorf("endpoint: decode: %w", err)
	}

	out.Host = strings.TrimSpace(out.Host)
	if out.Host == "" {
		return EndpointConfig{}, fmt.Errorf("endpoint: host is required")
	}
	if out.Port < 1 || out.Port > 65535 {
		return EndpointConfig{}, fmt.Errorf("endpoint: port %d out of range", out.Port)
	}
	return out, nil
}

// Data returns the setup-data map form of c, as stored on an entry.
func (c EndpointConfig) Data() map[string]any {
	return map[string]any{
		KeyHost:     c.Host,
		KeyPort:     c.Port,
		KeyScaleMin: c.ScaleMin,
		KeyScaleMax: c.ScaleMax,
	}
}
