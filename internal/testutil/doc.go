// Package testutil provides test fixtures and utilities.
//
// # Fixtures
//
// Configuration fixtures are embedded using go:embed:
//
//	fixtures/valid_config.toml
//	fixtures/valid_config.yaml
//	fixtures/invalid_config.toml
//
// WriteFixture copies one into a temporary directory so it can be passed
// to config.Load or --config:
//
//	path := testutil.WriteFixture(t, testutil.ValidConfigTOML)
//	cfg, err := config.Load(path)
//
// # Command Environment
//
// NewTestEnv replaces app.Default with an app whose executor and
// filesystem are mocks, so commands can run without touching the machine:
//
//	env := testutil.NewTestEnv(t)
//	env.Executor.AddResponse("dpkg-architecture", []byte("amd64\n"), 0)
//	// ... run a command ...
//	env.AssertRan("dpkg-architecture", "-q", "DEB_HOST_ARCH")
package testutil
