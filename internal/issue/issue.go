// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	VersionNotFoundId
	BrokenInheritanceId
	JavaNotFoundId
	PreflightFailedId
	ResourcesIncompleteId
	ChecksumMismatchId
	LoaderCompileFailedId
	LoaderMetadataId
	GameCrashedId
	AlreadyRunningId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink // never empty
	extLinks []HttpLink
}

func (i *Issue) Id() Id { return i.id }

func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

func (i *Issue) DocLinks() []HttpLink { return slices.Clone(i.docLinks) }

func (i *Issue) ExtLinks() []HttpLink { return slices.Clone(i.extLinks) }

// Render formats the message and its links as terminal Markdown. stylePath
// is a glamour standard style such as "auto" or "notty", or a JSON style
// file.
func (i *Issue) Render(stylePath string) (string, error) {
	var b strings.Builder
	b.WriteString(string(i.mdMsg))
	if len(i.docLinks)+len(i.extLinks) > 0 {
		b.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			b.WriteString("- <")
			b.WriteString(string(link))
			b.WriteString(">\n")
		}
	}
	return render(b.String(), stylePath)
}

const docBase = "https://kilnlauncher.github.io/kiln/docs/"

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# The kiln configuration could not be loaded

The file exists but is not valid CUE, or a value is out of range.

## Things you can try
- Print the effective configuration:
~~~
$ kiln config show
~~~
- Regenerate a fresh file and copy your settings over:
~~~
$ kiln config init --force
~~~`,
		docLinks: []HttpLink{docBase + "configuration"},
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	versionNotFoundIssue = &Issue{
		id: VersionNotFoundId,
		mdMsg: `
# Version not installed

No descriptor exists under ` + "`versions/<id>/<id>.json`" + ` for the requested version.

## Things you can try
- Fetch the vanilla version first:
~~~
$ kiln fetch 1.20.1
~~~
- Install a loader on top of it:
~~~
$ kiln install fabric 1.20.1
~~~`,
		docLinks: []HttpLink{docBase + "versions"},
	}

	brokenInheritanceIssue = &Issue{
		id: BrokenInheritanceId,
		mdMsg: `
# The version inherits from something that is missing

Loader versions declare ` + "`inheritsFrom`" + `; the parent version must be installed
and must not, directly or indirectly, inherit from the child.

## Things you can try
- Install the parent version named in the error.
- Reinstall the loader to rewrite its descriptor.`,
		docLinks: []HttpLink{docBase + "versions#inheritance"},
	}

	javaNotFoundIssue = &Issue{
		id: JavaNotFoundId,
		mdMsg: `
# No Java runtime was found

kiln starts the game with the ` + "`java`" + ` executable configured in ` + "`java.path`" + `,
or the first one on your PATH.

## Things you can try
- Point kiln at a runtime explicitly:
~~~
$ export KILN_JAVA_PATH=/usr/lib/jvm/java-17/bin/java
~~~
- Modern versions need Java 17 or newer; 1.16 and older need Java 8.`,
		docLinks: []HttpLink{docBase + "java"},
		extLinks: []HttpLink{"https://adoptium.net/"},
	}

	preflightFailedIssue = &Issue{
		id: PreflightFailedId,
		mdMsg: `
# The launch was refused before starting

One or more prerequisites failed the preflight check. Every problem is listed
above this message.

## Things you can try
- Run the fetch step again to restore missing files:
~~~
$ kiln fetch <version>
~~~
- Check that the game directory exists and is writable.`,
		docLinks: []HttpLink{docBase + "launching#preflight"},
	}

	resourcesIncompleteIssue = &Issue{
		id: ResourcesIncompleteId,
		mdMsg: `
# Some game files could not be downloaded

The download finished with failed entries. Files that did arrive are kept;
running the same command again only fetches what is still missing.

## Things you can try
- Retry; transient network failures are common.
- Raise the attempt count:
~~~
$ KILN_DOWNLOAD_ATTEMPTS=5 kiln fetch <version>
~~~
- Configure a mirror under ` + "`mirrors`" + ` in the config file.`,
		docLinks: []HttpLink{docBase + "downloads"},
	}

	checksumMismatchIssue = &Issue{
		id: ChecksumMismatchId,
		mdMsg: `
# A downloaded file did not match its checksum

The bytes received differ from the SHA-1 published in the version metadata.
The partial file was discarded.

## Things you can try
- Retry the download.
- If a mirror is configured, try without it; mirrors can serve stale files.`,
		docLinks: []HttpLink{docBase + "downloads#verification"},
	}

	loaderCompileFailedIssue = &Issue{
		id: LoaderCompileFailedId,
		mdMsg: `
# The loader installer failed

Forge and NeoForge run their installer processors with Java. One of them
exited unsuccessfully and the installation was rolled back.

## Things you can try
- Make sure the configured Java matches the loader's requirement.
- Re-run with ` + "`--verbose`" + ` to see the processor output.`,
		docLinks: []HttpLink{docBase + "loaders#forge"},
		extLinks: []HttpLink{"https://docs.minecraftforge.net/"},
	}

	loaderMetadataIssue = &Issue{
		id: LoaderMetadataId,
		mdMsg: `
# Loader metadata could not be read

The loader's metadata service returned no usable profile for this game
version. The loader may not support it yet.

## Things you can try
- Pick a loader version listed for the game version on the loader's site.
- Configure an alternative metadata endpoint under ` + "`repositories`" + `.`,
		docLinks: []HttpLink{docBase + "loaders"},
	}

	gameCrashedIssue = &Issue{
		id: GameCrashedId,
		mdMsg: `
# The game crashed

A known crash pattern appeared in the game output. The last lines are shown
above; a full crash report is usually saved under ` + "`crash-reports/`" + `.

## Things you can try
- Remove recently added mods.
- Raise ` + "`java.max_memory_mb`" + ` if the crash mentions OutOfMemoryError.`,
		docLinks: []HttpLink{docBase + "troubleshooting#crashes"},
	}

	alreadyRunningIssue = &Issue{
		id: AlreadyRunningId,
		mdMsg: `
# The game is already running

Only one game process is managed at a time. Close it, or stop it from kiln,
before launching again.`,
		docLinks: []HttpLink{docBase + "launching"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

kiln could not write inside the game directory.

## Things you can try
- Check ownership:
~~~
$ ls -ld ~/.minecraft
~~~
- Choose another directory with ` + "`--game-dir`" + ` or ` + "`game_dir`" + ` in the config.`,
		docLinks: []HttpLink{docBase + "configuration#game-dir"},
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		versionNotFoundIssue.Id():     versionNotFoundIssue,
		brokenInheritanceIssue.Id():   brokenInheritanceIssue,
		javaNotFoundIssue.Id():        javaNotFoundIssue,
		preflightFailedIssue.Id():     preflightFailedIssue,
		resourcesIncompleteIssue.Id(): resourcesIncompleteIssue,
		checksumMismatchIssue.Id():    checksumMismatchIssue,
		loaderCompileFailedIssue.Id(): loaderCompileFailedIssue,
		loaderMetadataIssue.Id():      loaderMetadataIssue,
		gameCrashedIssue.Id():         gameCrashedIssue,
		alreadyRunningIssue.Id():      alreadyRunningIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
	}
)

// Values returns every catalog entry in unspecified order.
func Values() []*Issue {
	return maps.Values(issues)
}

// Get returns nil for unknown ids.
func Get(id Id) *Issue {
	return issues[id]
}
