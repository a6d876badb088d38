/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config provides configuration structures and validation for the logger package.
//
// # Overview
//
// The config package defines the configuration model for golib/logger. A peer process
// run headless on a LAN device has one meaningful log sink: its own stdout/stderr, so
// Options carries a single Stdout block plus inheritance and trace-filtering controls.
//
// # Basic Usage
//
//	opts := &config.Options{
//	    Stdout: &config.OptionsStd{
//	        DisableStandard:  false,  // Enable stdout
//	        DisableStack:     true,   // No goroutine ID
//	        DisableTimestamp: false,  // Show timestamps
//	        EnableTrace:      true,   // Show caller info
//	        DisableColor:     false,  // Allow colors (if TTY)
//	        EnableAccessLog:  false,  // No access logs
//	    },
//	}
//
//	if err := opts.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Configuration Inheritance
//
//	defaultConfig := func() *config.Options {
//	    return &config.Options{
//	        Stdout: &config.OptionsStd{EnableTrace: true, DisableStack: true},
//	    }
//	}
//
//	opts := &config.Options{
//	    InheritDefault: true,
//	    TraceFilter:    "/myproject/",
//	}
//	opts.RegisterDefaultFunc(defaultConfig)
//
//	final := opts.Options()
//
// # Trace Filtering
//
// The TraceFilter field cleans file paths reported in stack traces:
//
//	main.go:42 instead of /go/src/github.com/myproject/main.go:42
//
// # Default Configuration
//
//	defaultJSON := config.DefaultConfig("")
//	var opts config.Options
//	_ = json.Unmarshal(defaultJSON, &opts)
//
// # Cloning and Merging
//
//	original := &config.Options{TraceFilter: "/original/"}
//	clone := original.Clone()
//	clone.TraceFilter = "/modified/" // does not affect original
//
//	base := &config.Options{Stdout: &config.OptionsStd{EnableTrace: true}}
//	override := &config.Options{TraceFilter: "/project/"}
//	base.Merge(override)
//
// # Error Handling
//
// The package defines two error codes: ErrorParamEmpty and ErrorValidatorError,
// returned as liberr.Error values so they chain into the rest of the error taxonomy.
package config
