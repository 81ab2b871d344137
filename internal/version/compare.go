package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

const devBuild = "main"

// CheckConfigCompatibility checks that a configuration file written for configVersion
// can be loaded by a binary at binaryVersion.
//
// Rules:
//   - "main" on either side skips the check (development build)
//   - an empty config version is accepted and treated as current
//   - major and minor must match, patch may differ
//
// Examples:
//   - binary 0.4.0, config 0.4.2 -> OK
//   - binary 0.5.0, config 0.4.0 -> ERROR (minor differs)
//   - binary 1.0.0, config 0.4.0 -> ERROR (major differs)
func CheckConfigCompatibility(binaryVersion, configVersion string) error {
	binaryVersion = strings.TrimPrefix(strings.TrimSpace(binaryVersion), "v")
	configVersion = strings.TrimPrefix(strings.TrimSpace(configVersion), "v")

	if binaryVersion == devBuild || configVersion == devBuild || configVersion == "" {
		return nil
	}

	binary, err := semver.NewVersion(binaryVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid binary version '%s'", binaryVersion)
	}

	config, err := semver.NewVersion(configVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid config version '%s'", configVersion)
	}

	if binary.Major() != config.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major version mismatch: binary is %d.x.x but config targets %d.x.x",
			binary.Major(), config.Major())
	}

	if binary.Minor() != config.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"minor version mismatch: binary is %d.%d.x but config targets %d.%d.x",
			binary.Major(), binary.Minor(), config.Major(), config.Minor())
	}

	return nil
}
