// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package schemas

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	install "github.com/hashicorp/hc-install"
	"github.com/hashicorp/hc-install/fs"
	"github.com/hashicorp/hc-install/product"
	"github.com/hashicorp/hc-install/releases"
	"github.com/hashicorp/hc-install/src"
	"github.com/hashicorp/terraform-exec/tfexec"
	tfjson "github.com/hashicorp/terraform-json"
)

// Target names one provider requirement to obtain a schema for.
type Target struct {
	// Source is the provider source address, e.g. "hashicorp/aws".
	Source string
	// Version is an optional version constraint string.
	Version string
}

// Bundle is the result of a Read call.
type Bundle struct {
	ProviderSchemas *tfjson.ProviderSchemas
	Catalog         *Catalog
}

// ReadOptions configures Read.
type ReadOptions struct {
	// ExecPath points at a terraform binary; when empty the binary is
	// located on PATH or installed on demand.
	ExecPath string
	// WorkDir is where the synthetic requirements configuration and the
	// provider downloads go; a temp dir is created when empty.
	WorkDir string
	Logger  *log.Logger
}

var defaultLogger = log.New(io.Discard, "", 0)

// Read obtains provider schemas for the given targets by writing a minimal
// requirements-only configuration, initializing it, and running
// `terraform providers schema -json`.
func Read(ctx context.Context, targets []Target, opts ReadOptions) (*Bundle, error) {
	logger := opts.Logger
	if logger == nil {
		logger = defaultLogger
	}

	workDir := opts.WorkDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "hcl2cdk-schema")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir)
		workDir = dir
	}

	if err := writeRequirementsFile(workDir, targets); err != nil {
		return nil, err
	}

	execPath := opts.ExecPath
	if execPath == "" {
		installer := install.NewInstaller()
		defer installer.Remove(ctx)
		path, err := installer.Ensure(ctx, []src.Source{
			&fs.AnyVersion{Product: &product.Terraform},
			&releases.LatestVersion{Product: product.Terraform},
		})
		if err != nil {
			return nil, fmt.Errorf("locating terraform binary: %w", err)
		}
		execPath = path
	}

	tf, err := tfexec.NewTerraform(workDir, execPath)
	if err != nil {
		return nil, err
	}
	tf.SetLogger(logger)

	if err := tf.Init(ctx); err != nil {
		return nil, fmt.Errorf("terraform init: %w", err)
	}

	ps, err := tf.ProvidersSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("terraform providers schema: %w", err)
	}

	catalog := NewCatalog()
	if err := catalog.AddProviderSchemas(ps); err != nil {
		return nil, err
	}
	logger.Printf("loaded schemas for %d provider(s)", len(ps.Schemas))

	return &Bundle{ProviderSchemas: ps, Catalog: catalog}, nil
}

// writeRequirementsFile emits a required_providers-only configuration that
// terraform init can install providers from.
func writeRequirementsFile(workDir string, targets []Target) error {
	content := "terraform {\n  required_providers {\n"
	for _, t := range targets {
		addr, err := ParseSource(t.Source)
		if err != nil {
			return fmt.Errorf("invalid provider source %q: %w", t.Source, err)
		}
		content += fmt.Sprintf("    %s = {\n      source = %q\n", addr.Type, addr.ForDisplay())
		if t.Version != "" {
			content += fmt.Sprintf("      version = %q\n", t.Version)
		}
		content += "    }\n"
	}
	content += "  }\n}\n"

	return os.WriteFile(filepath.Join(workDir, "requirements.tf"), []byte(content), 0o644)
}
