// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

const (
	ExecutableNotFoundId Id = iota + 1
	PermissionDeniedId
	TimeoutExpiredId
	CancelledId
	BuildFailedId
	ConfigLoadFailedId
	ContainerEngineNotFoundId
	InvalidMountId
	ServiceMessageFileId
)

type (
	// Id identifies an issue in the catalog.
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a catalog entry with Markdown guidance shown when the matching
	// failure reaches the user.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the guidance as terminal Markdown. stylePath is a glamour
// style name ("dark", "light", "notty") or a path to a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if links := slices.Concat(i.docLinks, i.extLinks); len(links) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range links {
			md.WriteString("\n- <" + string(link) + ">")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	executableNotFoundIssue = &Issue{
		id: ExecutableNotFoundId,
		mdMsg: `
# Executable not found!

The tool you asked toolhost to run could not be located.

## Things you can try:
- Pass an absolute path to the executable
- Check that the tool is installed and on your PATH:
~~~
$ command -v dotnet
~~~
- When running inside a container, the executable must exist in the image,
  not on the host`,
		extLinks: []HttpLink{"https://pkg.go.dev/os/exec#LookPath"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

The executable exists but could not be started.

## Things you can try:
- Make the file executable:
~~~
$ chmod +x ./build.sh
~~~
- Check that the working directory is readable
- On Linux sandboxes (Flatpak, Snap) host binaries may be hidden from the
  sandboxed process`,
	}

	timeoutExpiredIssue = &Issue{
		id: TimeoutExpiredId,
		mdMsg: `
# The tool timed out!

The process tree was killed because it ran longer than the configured timeout.
Tests that were still running are reported as failed.

## Things you can try:
- Raise the timeout for this run:
~~~
$ toolhost run --timeout 30m -- dotnet test
~~~
- Or change the default in your configuration:
~~~cue
runner: default_timeout: "30m"
~~~`,
	}

	cancelledIssue = &Issue{
		id: CancelledId,
		mdMsg: `
# The run was cancelled!

The process tree was killed before the tool finished. No exit code is available.`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Build failed!

The tool exited with a non-zero exit code.

## Things you can try:
- Inspect the failure messages and failed tests listed above
- Render the full result for more detail:
~~~
$ toolhost run --format yaml -- dotnet test
~~~
- Run with verbose mode to see every parsed service message:
~~~
$ toolhost --verbose run -- dotnet test
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the toolhost configuration file.

## Configuration file locations:
- Linux: ~/.config/toolhost/config.cue
- macOS: ~/Library/Application Support/toolhost/config.cue
- Windows: %APPDATA%\toolhost\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ toolhost config init
~~~
- Show the effective configuration:
~~~
$ toolhost config show
~~~
- Check the CUE syntax of your file with the cue command-line tool`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

You asked toolhost to run the tool in a container but neither Podman nor
Docker is available.

## Things you can try:
- Install Podman: https://podman.io
- Install Docker: https://docs.docker.com/get-docker/
- Pick the engine explicitly in your configuration:
~~~cue
container: engine: "docker"
~~~
- Run the tool on the host by dropping the --container flag`,
	}

	invalidMountIssue = &Issue{
		id: InvalidMountId,
		mdMsg: `
# Invalid mount!

Mounts use the form HOST:CONTAINER[:OPTIONS].

## Examples:
~~~
$ toolhost run --container mcr.microsoft.com/dotnet/sdk:8.0 \
    --mount "$PWD:/workspace" \
    --mount "$HOME/.nuget/packages:/root/.nuget/packages:ro,z" \
    -- dotnet test /workspace/App.sln
~~~

The container path must be absolute. Options are ro, rw, z and Z.`,
	}

	serviceMessageFileIssue = &Issue{
		id: ServiceMessageFileId,
		mdMsg: `
# Could not read the service message log!

toolhost parse reads a file of captured tool output, one line per entry.

## Things you can try:
- Check that the path exists and is readable
- Use - to read from standard input:
~~~
$ dotnet test | toolhost parse -
~~~`,
	}

	issues = map[Id]*Issue{
		executableNotFoundIssue.Id():      executableNotFoundIssue,
		permissionDeniedIssue.Id():        permissionDeniedIssue,
		timeoutExpiredIssue.Id():          timeoutExpiredIssue,
		cancelledIssue.Id():               cancelledIssue,
		buildFailedIssue.Id():             buildFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		invalidMountIssue.Id():            invalidMountIssue,
		serviceMessageFileIssue.Id():      serviceMessageFileIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	v := maps.Values(issues)
	slices.SortFunc(v, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return v
}

func Get(id Id) *Issue {
	return issues[id]
}
