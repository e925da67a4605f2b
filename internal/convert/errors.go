// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp/hcl2cdk/internal/lowering"
)

// CycleDetectedError is returned when the reference graph makes no progress
// while unvisited nodes remain.
type CycleDetectedError struct {
	// Unvisited holds the ids of the nodes that could not be emitted.
	Unvisited []string
}

func (e *CycleDetectedError) Error() string {
	ids := append([]string{}, e.Unvisited...)
	sort.Strings(ids)
	return fmt.Sprintf("cycle detected between: %s", strings.Join(ids, ", "))
}

// MissingNodeError indicates an edge was added to a target that was never
// registered. It points at a bug in reference discovery, not at user input.
type MissingNodeError struct {
	ID string
}

func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("edge added to unregistered node %q", e.ID)
}

// UnsupportedLanguageError is returned for target languages outside the
// known set.
type UnsupportedLanguageError struct {
	Language Language
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported target language %q (supported: %s)",
		e.Language, strings.Join(languageNames(), ", "))
}

// LoweringError is raised only when Options.ThrowOnTranslationError is set
// and the lowering produced error diagnostics.
type LoweringError struct {
	Diagnostics []lowering.Diagnostic
}

func (e *LoweringError) Error() string {
	var errs *multierror.Error
	for _, d := range e.Diagnostics {
		if d.Severity == lowering.SeverityError {
			errs = multierror.Append(errs, fmt.Errorf("%s", d))
		}
	}
	return fmt.Sprintf("lowering failed: %s", errs.Error())
}
