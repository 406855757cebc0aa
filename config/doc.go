// Copyright 2025 Poiesic Systems
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

// Package config resolves credentials and service settings from an
// optional key=value file and the process environment.
//
// Values set in the process environment take precedence over the file,
// so a deployment can override a checked-in .env without editing it.
//
// Example:
//
//	env, err := config.Load(".env")
//	if err != nil {
//	    return err
//	}
//	aiCfg, err := env.AI()
package config
