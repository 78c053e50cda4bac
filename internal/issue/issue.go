// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"

	"github.com/jmodlink/jmodlink/internal/iox"
	"github.com/jmodlink/jmodlink/pkg/fallback"
	"github.com/jmodlink/jmodlink/pkg/linker"
	"github.com/jmodlink/jmodlink/pkg/moddesc"
	"github.com/jmodlink/jmodlink/pkg/platform"
	"github.com/jmodlink/jmodlink/pkg/plugin"
	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/shim"
)

type Id int

const (
	MalformedContainerId Id = iota + 1
	InvalidModuleDescriptorId
	EntryNotFoundId
	UnresolvedDependencyId
	CyclicModuleGraphId
	PipelineConfigurationId
	UnknownPluginOptionId
	PluginExecutionFailedId
	IOFailureId
	FallbackHashMismatchId
	InvalidFallbackListId
	NoRuntimeImageId
	InvalidPlatformId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	name     string      // topic accepted by 'jmodlink explain'
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Name() string {
	return i.name
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

const (
	jlinkManPage HttpLink = "https://docs.oracle.com/en/java/javase/21/docs/specs/man/jlink.html"
	jmodManPage  HttpLink = "https://docs.oracle.com/en/java/javase/21/docs/specs/man/jmod.html"
)

var (
	render = glamour.Render

	malformedContainerIssue = &Issue{
		id:   MalformedContainerId,
		name: "malformed-container",
		mdMsg: `
# Malformed archive or image

A jmod archive or runtime image could not be decoded. The message names the
byte offset where decoding stopped.

## Things you can try:
- Check that the file was copied completely; a truncated download is the usual cause
- List the archive to see how far it can be read:
~~~
$ jmodlink jmod list path/to/module.jmod
~~~
- Recreate the archive from its module root:
~~~
$ jmodlink jmod create --root path/to/module out.jmod
~~~`,
		docLinks: []HttpLink{jmodManPage},
	}

	invalidModuleDescriptorIssue = &Issue{
		id:   InvalidModuleDescriptorId,
		name: "invalid-module-descriptor",
		mdMsg: `
# Invalid module descriptor

A module descriptor broke one of the module rules. Every reason is listed in
the message.

## Common causes:
- The module name is not a dotted identifier such as 'com.example.app'
- The module requires itself, or requires the same module twice
- An exported or opened package has no classes in the module
- A class sits in the unnamed package (directly under 'classes/')

## Things you can try:
- Inspect the descriptor that was recorded:
~~~
$ jmodlink jmod describe path/to/module.jmod
~~~
- Fix 'module-info.cue' or 'module-info.toml' in the module root and recreate the archive`,
	}

	entryNotFoundIssue = &Issue{
		id:   EntryNotFoundId,
		name: "entry-not-found",
		mdMsg: `
# Entry not found

A named entry is not in the archive or image it was looked up in.

## Things you can try:
- List what the archive actually holds:
~~~
$ jmodlink jmod list path/to/module.jmod
~~~
- For images, list the entries of one module:
~~~
$ jmodlink image list path/to/modules --module java.base
~~~`,
	}

	unresolvedDependencyIssue = &Issue{
		id:   UnresolvedDependencyId,
		name: "unresolved-dependency",
		mdMsg: `
# Unresolved module dependency

A module requires another module that is neither among the inputs nor in the
runtime image.

## Things you can try:
- Add the missing module's archive or module root to the link inputs
- Point '--runtime' at a runtime that contains the module
- If the dependency is optional at run time, declare it 'static' in the descriptor`,
		docLinks: []HttpLink{jlinkManPage},
	}

	cyclicModuleGraphIssue = &Issue{
		id:   CyclicModuleGraphId,
		name: "cyclic-module-graph",
		mdMsg: `
# Cyclic module graph

The modules require each other in a cycle, which the module system does not
allow. The message shows the cycle, for example 'a -> b -> a'.

## Things you can try:
- Move the shared types into a new module both sides require
- Drop one of the 'requires' edges named in the cycle`,
	}

	pipelineConfigurationIssue = &Issue{
		id:   PipelineConfigurationId,
		name: "pipeline-configuration",
		mdMsg: `
# Pipeline configuration error

The configured stages cannot form a pipeline.

## Common causes:
- A stage name that is not registered
- A 'before'/'after' constraint naming a stage that is not configured
- Constraints that contradict each other (the message shows the cycle)
- More than one stage that writes the image

## Things you can try:
- List the registered stages and their options:
~~~
$ jmodlink link --list-stages
~~~`,
	}

	unknownPluginOptionIssue = &Issue{
		id:   UnknownPluginOptionId,
		name: "unknown-plugin-option",
		mdMsg: `
# Unknown plugin option

A stage was given an option it does not accept. The message lists the options
the stage knows.

## Things you can try:
- Check the spelling in '--stage name:key=value' or in 'jmodlink.cue'
- List the registered stages and their options:
~~~
$ jmodlink link --list-stages
~~~`,
	}

	pluginExecutionFailedIssue = &Issue{
		id:   PluginExecutionFailedId,
		name: "plugin-execution-failed",
		mdMsg: `
# Stage failed

A pipeline stage returned an error while transforming the resource pool. No
image was written.

## Things you can try:
- Rerun with '--verbose' to see the stage trace and the full error chain
- Remove the failing stage from the configuration to confirm it is the cause`,
	}

	ioFailureIssue = &Issue{
		id:   IOFailureId,
		name: "io-failure",
		mdMsg: `
# I/O failure

Reading or writing a file failed, including after the configured retries.

## Things you can try:
- Check that the input files exist and are readable
- Check that the output directory exists, is writable and has free space
- Raise the retry count with 'JMODLINK_RETRY_ATTEMPTS' on flaky network filesystems`,
	}

	fallbackHashMismatchIssue = &Issue{
		id:   FallbackHashMismatchId,
		name: "fallback-hash-mismatch",
		mdMsg: `
# Fallback hash mismatch

A reduced module lists an entry whose bytes in the runtime no longer match the
recorded SHA-256 digest. The runtime is not the one the module was reduced
against.

## Things you can try:
- Link against the runtime the module was reduced against
- Restore the module on a matching runtime, then reduce it again:
~~~
$ jmodlink restore --runtime /path/to/runtime module.jmod
$ jmodlink reduce --runtime /path/to/new/runtime module.jmod
~~~
- Skip verification for the link with '--stage fallback-jmod:verify=false'`,
	}

	invalidFallbackListIssue = &Issue{
		id:   InvalidFallbackListId,
		name: "invalid-fallback-list",
		mdMsg: `
# Invalid fallback list

The 'classes/fallback.list' entry of a reduced module could not be parsed.

## Format
Each line is a SHA-256 digest in lower-case hex, or '-', followed by one space
and a relative entry path:
~~~
- lib/libjava.so
3b6ab...e9 classes/java/lang/Object.class
~~~
Paths may not be absolute and may not contain '.' or '..' segments.`,
	}

	noRuntimeImageIssue = &Issue{
		id:   NoRuntimeImageId,
		name: "no-runtime-image",
		mdMsg: `
# No runtime image

The operation needs a runtime image ('lib/modules') but none was found.

## Things you can try:
- Point '--runtime' (or 'runtime_path' in 'jmodlink.cue') at a runtime directory
- Check that '<runtime>/lib/modules' exists and is readable`,
	}

	invalidPlatformIssue = &Issue{
		id:   InvalidPlatformId,
		name: "invalid-platform",
		mdMsg: `
# Invalid target platform

The target platform must be '<os>-<arch>', for example 'linux-x64',
'macos-aarch64' or 'windows-x64'.`,
	}

	configLoadFailedIssue = &Issue{
		id:   ConfigLoadFailedId,
		name: "config-load-failed",
		mdMsg: `
# Configuration could not be loaded

'jmodlink.cue' (or the file passed with '--config') is not valid CUE or does
not match the configuration schema.

## Example:
~~~cue
base_module: "java.base"
runtime_path: "/usr/lib/jvm/jdk"
stages: [
	{name: "compress", options: {level: 6}},
	{name: "strip-native-debug"},
]
~~~`,
	}

	issues = map[Id]*Issue{
		malformedContainerIssue.Id():      malformedContainerIssue,
		invalidModuleDescriptorIssue.Id(): invalidModuleDescriptorIssue,
		entryNotFoundIssue.Id():           entryNotFoundIssue,
		unresolvedDependencyIssue.Id():    unresolvedDependencyIssue,
		cyclicModuleGraphIssue.Id():       cyclicModuleGraphIssue,
		pipelineConfigurationIssue.Id():   pipelineConfigurationIssue,
		unknownPluginOptionIssue.Id():     unknownPluginOptionIssue,
		pluginExecutionFailedIssue.Id():   pluginExecutionFailedIssue,
		ioFailureIssue.Id():               ioFailureIssue,
		fallbackHashMismatchIssue.Id():    fallbackHashMismatchIssue,
		invalidFallbackListIssue.Id():     invalidFallbackListIssue,
		noRuntimeImageIssue.Id():          noRuntimeImageIssue,
		invalidPlatformIssue.Id():         invalidPlatformIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
	}

	// Checked in order; more specific sentinels come first because some
	// errors wrap two of them.
	errorIssues = []struct {
		target error
		id     Id
	}{
		{fallback.ErrHashMismatch, FallbackHashMismatchId},
		{fallback.ErrInvalidList, InvalidFallbackListId},
		{fallback.ErrNoRuntime, NoRuntimeImageId},
		{shim.ErrNoNativeImage, NoRuntimeImageId},
		{moddesc.ErrInvalidModuleDescriptor, InvalidModuleDescriptorId},
		{poolcodec.ErrEntryNotFound, EntryNotFoundId},
		{poolcodec.ErrMalformedContainer, MalformedContainerId},
		{linker.ErrCyclicModuleGraph, CyclicModuleGraphId},
		{linker.ErrUnresolvedDependency, UnresolvedDependencyId},
		{plugin.ErrUnknownPluginOption, UnknownPluginOptionId},
		{plugin.ErrPipelineConfiguration, PipelineConfigurationId},
		{plugin.ErrPluginExecutionFailed, PluginExecutionFailedId},
		{platform.ErrInvalidTarget, InvalidPlatformId},
		{iox.ErrIOFailure, IOFailureId},
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// Lookup finds an issue by its topic name.
func Lookup(name string) *Issue {
	for _, i := range issues {
		if i.name == name {
			return i
		}
	}
	return nil
}

// ForError returns the issue that explains err, or nil.
func ForError(err error) *Issue {
	if err == nil {
		return nil
	}
	for _, e := range errorIssues {
		if errors.Is(err, e.target) {
			return issues[e.id]
		}
	}
	return nil
}
