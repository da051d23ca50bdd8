// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

// PositiveValidator rejects zero and negative numbers and durations.
func PositiveValidator(value any) error {
	var ok bool
	switch v := value.(type) {
	case int:
		ok = v > 0
	case time.Duration:
		ok = v > 0
	default:
		return fmt.Errorf("unsupported value %T", value)
	}
	if !ok {
		return errors.New("must be greater than zero")
	}
	return nil
}

// URLValidator accepts absolute http and https URLs.
func URLValidator(value any) error {
	u, err := url.Parse(value.(string))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must be an http or https URL")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

// KeyValidator accepts names usable as a single file name stem.
func KeyValidator(value any) error {
	k := value.(string)
	if k == "" || k == "." || k == ".." || strings.ContainsAny(k, `/\`) {
		return errors.New("must be a plain name")
	}
	return nil
}
