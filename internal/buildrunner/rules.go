package buildrunner

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// Rule maps a workspace layout to a build command.
type Rule interface {
	// Name identifies the rule in logs and results (e.g., "gradle-wrapper").
	Name() string

	// Match returns the command for dir if the rule applies.
	Match(fsys afero.Fs, dir string) ([]string, bool)
}

// Fixed phases run by build-tool rules: clean, test, document, package.
var (
	mavenPhases  = []string{"clean", "test", "javadoc:javadoc", "package"}
	gradlePhases = []string{"clean", "test", "javadoc", "assemble"}
)

// DefaultRules returns the detection order used when no command is given.
// projectDirs are searched for build descriptors after the root.
func DefaultRules(projectDirs []string) []Rule {
	return []Rule{
		&ScriptRule{name: "go-script", path: "go", requireExec: true},
		&ScriptRule{name: "pre-commit", path: "pre-commit.sh"},
		&ScriptRule{name: "maven-wrapper", path: "mvnw", args: mavenPhases},
		&ScriptRule{name: "gradle-wrapper", path: "gradlew", args: gradlePhases},
		&DescriptorRule{projectDirs: projectDirs},
	}
}

// ScriptRule runs a script at a fixed path relative to the workspace root.
type ScriptRule struct {
	name string
	path string
	args []string
	// requireExec skips the script unless it has an execute bit.
	requireExec bool
}

// Name returns the rule name.
func (r *ScriptRule) Name() string {
	return r.name
}

// Match runs the script directly when executable, otherwise through sh.
func (r *ScriptRule) Match(fsys afero.Fs, dir string) ([]string, bool) {
	info, err := fsys.Stat(filepath.Join(dir, r.path))
	if err != nil || info.IsDir() {
		return nil, false
	}

	var cmd []string
	switch {
	case isExecutable(info.Mode()):
		cmd = []string{"./" + r.path}
	case r.requireExec:
		return nil, false
	default:
		cmd = []string{"sh", r.path}
	}
	return append(cmd, r.args...), true
}

// DescriptorRule maps Maven and Gradle project files to the installed tool.
type DescriptorRule struct {
	projectDirs []string
}

// Name returns the rule name.
func (r *DescriptorRule) Name() string {
	return "build-descriptor"
}

// Match checks the root, then each project dir, for pom.xml or build.gradle(.kts).
func (r *DescriptorRule) Match(fsys afero.Fs, dir string) ([]string, bool) {
	dirs := append([]string{"."}, r.projectDirs...)
	for _, d := range dirs {
		if exists(fsys, filepath.Join(dir, d, "pom.xml")) {
			cmd := []string{"mvn"}
			if d != "." {
				cmd = append(cmd, "-f", filepath.Join(d, "pom.xml"))
			}
			return append(cmd, mavenPhases...), true
		}
		if exists(fsys, filepath.Join(dir, d, "build.gradle")) ||
			exists(fsys, filepath.Join(dir, d, "build.gradle.kts")) {
			cmd := []string{"gradle"}
			if d != "." {
				cmd = append(cmd, "-p", d)
			}
			return append(cmd, gradlePhases...), true
		}
	}
	return nil, false
}

func exists(fsys afero.Fs, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && !info.IsDir()
}

func isExecutable(mode fs.FileMode) bool {
	return mode.Perm()&0o111 != 0
}
