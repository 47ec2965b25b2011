// Package coverage parses the text report formats of the coverage tools the
// helper wraps and enforces configured minimum percentages.
package coverage

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	cierrors "cihelper.dev/cihelper/internal/errors"
)

// ParseGoFunc extracts the total statement coverage from `go tool cover -func`
// output. The relevant line looks like:
//
//	total:                  (statements)    81.5%
func ParseGoFunc(report string) (float64, error) {
	scanner := bufio.NewScanner(strings.NewReader(report))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "total:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		return parsePercent(fields[len(fields)-1])
	}
	return 0, fmt.Errorf("no total: line in coverage report")
}

// ParseLCOV computes line coverage from an LCOV trace. Each file section
// carries LF: (lines found) and LH: (lines hit) records; the ratio of the
// sums is the overall percentage.
func ParseLCOV(r io.Reader) (float64, error) {
	var found, hit int64

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "LF:"):
			n, err := strconv.ParseInt(strings.TrimPrefix(line, "LF:"), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("malformed LF record %q: %w", line, err)
			}
			found += n
		case strings.HasPrefix(line, "LH:"):
			n, err := strconv.ParseInt(strings.TrimPrefix(line, "LH:"), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("malformed LH record %q: %w", line, err)
			}
			hit += n
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if found == 0 {
		return 0, fmt.Errorf("no LF records in lcov trace")
	}
	return float64(hit) / float64(found) * 100, nil
}

// ParseTarpaulin extracts the overall percentage from cargo-tarpaulin output.
// The summary line looks like:
//
//	75.00% coverage, 300/400 lines covered
func ParseTarpaulin(report string) (float64, error) {
	scanner := bufio.NewScanner(strings.NewReader(report))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		rest, ok := strings.CutSuffix(line, "% coverage")
		if !ok {
			idx := strings.Index(line, "% coverage,")
			if idx < 0 {
				continue
			}
			rest = line[:idx]
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		value, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			continue
		}
		return value, nil
	}
	return 0, fmt.Errorf("no coverage summary line in tarpaulin output")
}

// Enforce returns a ThresholdError when actual is below minimum.
// A minimum of zero disables enforcement.
func Enforce(metric string, actual, minimum float64) error {
	if minimum <= 0 {
		return nil
	}
	if actual < minimum {
		return cierrors.NewThresholdError(metric, actual, minimum)
	}
	return nil
}

func parsePercent(field string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSuffix(field, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed percentage %q: %w", field, err)
	}
	return value, nil
}
