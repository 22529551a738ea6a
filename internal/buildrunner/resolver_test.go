package buildrunner

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const root = "/work/repo"

type file struct {
	path string
	mode fs.FileMode
}

func memFs(t require.TestingT, files ...file) afero.Fs {
	fsys := afero.NewMemMapFs()
	for _, f := range files {
		path := filepath.Join(root, f.path)
		require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fsys, path, []byte("#!/bin/sh\n"), 0o644))
		require.NoError(t, fsys.Chmod(path, f.mode))
	}
	return fsys
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		files    []file
		explicit []string
		wantRule string
		wantArgs []string
	}{
		{
			name:     "explicit wins over everything",
			files:    []file{{"go", 0o755}, {"pom.xml", 0o644}},
			explicit: []string{"sh", "-c", "make check"},
			wantRule: RuleExplicit,
			wantArgs: []string{"sh", "-c", "make check"},
		},
		{
			name:     "executable go script",
			files:    []file{{"go", 0o755}, {"pre-commit.sh", 0o755}},
			wantRule: "go-script",
			wantArgs: []string{"./go"},
		},
		{
			name:     "non-executable go script is ignored",
			files:    []file{{"go", 0o644}, {"pre-commit.sh", 0o755}},
			wantRule: "pre-commit",
			wantArgs: []string{"./pre-commit.sh"},
		},
		{
			name:     "pre-commit script without execute bit runs through sh",
			files:    []file{{"pre-commit.sh", 0o644}, {"gradlew", 0o755}},
			wantRule: "pre-commit",
			wantArgs: []string{"sh", "pre-commit.sh"},
		},
		{
			name:     "maven wrapper",
			files:    []file{{"mvnw", 0o755}, {"pom.xml", 0o644}},
			wantRule: "maven-wrapper",
			wantArgs: []string{"./mvnw", "clean", "test", "javadoc:javadoc", "package"},
		},
		{
			name:     "gradle wrapper",
			files:    []file{{"gradlew", 0o755}, {"build.gradle", 0o644}},
			wantRule: "gradle-wrapper",
			wantArgs: []string{"./gradlew", "clean", "test", "javadoc", "assemble"},
		},
		{
			name:     "pom at root",
			files:    []file{{"pom.xml", 0o644}},
			wantRule: "build-descriptor",
			wantArgs: []string{"mvn", "clean", "test", "javadoc:javadoc", "package"},
		},
		{
			name:     "pom in project dir",
			files:    []file{{"java/pom.xml", 0o644}},
			wantRule: "build-descriptor",
			wantArgs: []string{"mvn", "-f", "java/pom.xml", "clean", "test", "javadoc:javadoc", "package"},
		},
		{
			name:     "gradle kotlin dsl in project dir",
			files:    []file{{"java/build.gradle.kts", 0o644}},
			wantRule: "build-descriptor",
			wantArgs: []string{"gradle", "-p", "java", "clean", "test", "javadoc", "assemble"},
		},
		{
			name:     "root descriptor before project dir",
			files:    []file{{"build.gradle", 0o644}, {"java/pom.xml", 0o644}},
			wantRule: "build-descriptor",
			wantArgs: []string{"gradle", "clean", "test", "javadoc", "assemble"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(memFs(t, tt.files...), []string{"java"}, WithGOOS("linux"))

			cmd, err := r.Resolve(tt.explicit, root)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRule, cmd.Rule)
			assert.Equal(t, tt.wantArgs, cmd.Args)
		})
	}
}

func TestResolver_NoBuildRunnerFound(t *testing.T) {
	fsys := memFs(t, file{"README.md", 0o644}, file{"other/pom.xml", 0o644})
	r := NewResolver(fsys, []string{"java"}, WithGOOS("linux"))

	_, err := r.Resolve(nil, root)
	assert.ErrorIs(t, err, ErrNoBuildRunnerFound)
}

func TestResolver_DirectoryNamedLikeScript(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll(filepath.Join(root, "go"), 0o755))

	_, err := NewResolver(fsys, nil).Resolve(nil, root)
	assert.ErrorIs(t, err, ErrNoBuildRunnerFound)
}

func TestResolver_IdleGuard(t *testing.T) {
	fsys := memFs(t, file{"gradlew", 0o755})

	tests := []struct {
		name    string
		opts    []Option
		wantPre []string
	}{
		{"darwin wraps", []Option{WithGOOS("darwin")}, []string{"caffeinate", "-i", "./gradlew"}},
		{"linux untouched", []Option{WithGOOS("linux")}, []string{"./gradlew"}},
		{"disabled on darwin", []Option{WithGOOS("darwin"), WithIdleGuard(false)}, []string{"./gradlew"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := NewResolver(fsys, nil, tt.opts...).Resolve(nil, root)
			require.NoError(t, err)
			assert.Equal(t, "gradle-wrapper", cmd.Rule)
			assert.Equal(t, tt.wantPre, cmd.Args[:len(tt.wantPre)])
		})
	}

	t.Run("explicit command is wrapped too", func(t *testing.T) {
		cmd, err := NewResolver(fsys, nil, WithGOOS("darwin")).Resolve([]string{"make"}, root)
		require.NoError(t, err)
		assert.Equal(t, []string{"caffeinate", "-i", "make"}, cmd.Args)
		assert.Equal(t, RuleExplicit, cmd.Rule)
	})
}

func TestResolver_CustomRules(t *testing.T) {
	fsys := memFs(t, file{"Makefile", 0o644})
	r := NewResolver(fsys, nil, WithRules(&ScriptRule{name: "make", path: "Makefile"}))

	cmd, err := r.Resolve(nil, root)
	require.NoError(t, err)
	assert.Equal(t, "make", cmd.Rule)
}

func TestCommand_String(t *testing.T) {
	cmd := Command{Rule: "maven-wrapper", Args: []string{"./mvnw", "clean"}}
	assert.Equal(t, "./mvnw clean", cmd.String())
	assert.False(t, cmd.IsZero())
	assert.True(t, Command{}.IsZero())
}

// Resolution is decided by the highest-priority marker present: adding
// lower-priority markers never changes the outcome.
func TestResolver_PrecedenceProperty(t *testing.T) {
	markers := []file{
		{"go", 0o755},
		{"pre-commit.sh", 0o755},
		{"mvnw", 0o755},
		{"gradlew", 0o755},
		{"pom.xml", 0o644},
	}
	wantRules := []string{"go-script", "pre-commit", "maven-wrapper", "gradle-wrapper", "build-descriptor"}

	rapid.Check(t, func(t *rapid.T) {
		present := rapid.SliceOfN(rapid.Bool(), len(markers), len(markers)).Draw(t, "present")
		explicit := rapid.Bool().Draw(t, "explicit")

		var files []file
		first := -1
		for i, p := range present {
			if p {
				files = append(files, markers[i])
				if first < 0 {
					first = i
				}
			}
		}

		var explicitCmd []string
		if explicit {
			explicitCmd = []string{"true"}
		}

		cmd, err := NewResolver(memFs(t, files...), nil, WithGOOS("linux")).Resolve(explicitCmd, root)
		switch {
		case explicit:
			if err != nil || cmd.Rule != RuleExplicit {
				t.Fatalf("explicit command not used: %v %v", cmd, err)
			}
		case first < 0:
			if err == nil {
				t.Fatalf("expected ErrNoBuildRunnerFound, got %v", cmd)
			}
		default:
			if err != nil || cmd.Rule != wantRules[first] {
				t.Fatalf("got rule %q (err %v), want %q", cmd.Rule, err, wantRules[first])
			}
		}
	})
}
