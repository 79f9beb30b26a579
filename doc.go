// Copyright 2023-2026 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lbcore is the request-routing core of a DNS load balancer. It
// owns the pieces a query-handling frontend needs on every single
// dispatch: named pools of backends (pool), the seven selection
// policies that pick a backend from a pool (policy), backend lifecycle
// and per-query state (backend), the UDP query-id multiplexer
// (idtable), and the health-state seam those backends report through
// (health). This package ties them together as a Router.
//
// lbcore intentionally does not parse configuration files, does not
// implement DNS wire encoding/decoding, does not open listening sockets,
// and does not perform the actual health-check probes (only the
// Checker/Tracker seam through which an external prober plugs in). Those
// concerns live in whatever embeds this package as its routing core.
//
// # Usage
//
// Build backends with backend.New, register them into named pools with
// pool.New and Pool.AddServer, add each pool to the Router with
// Router.AddPool under the name of its policy (one of the seven built-in
// names, or a policy.Factory added with Router.RegisterPolicy), switch it
// later with Router.SetPolicy, and call Router.SelectServer once per
// incoming query:
//
//	r := lbcore.NewRouter()
//	err := r.AddPool(myPool, "wrandom")
//	err = r.SetPolicy(myPool.Name(), "chashed")
//	candidate, err := r.SelectServer(lbcore.Query{Name: "example.com.", Type: dns.TypeA}, "mypool")
package lbcore
