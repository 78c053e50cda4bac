// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jmodlink/jmodlink/pkg/poolcodec"
	"github.com/jmodlink/jmodlink/pkg/resource"
)

// DescriptorResource is the resource name under which every module in a
// link pool carries its binary descriptor.
const DescriptorResource = "module-info.bin"

var classFileMagic = []byte{0xca, 0xfe, 0xba, 0xbe}

type verifyStage struct {
	Info
	classMagic        bool
	requireDescriptor bool
}

func verifyFactory() Factory {
	return Factory{
		Name:        StageVerifyPool,
		Category:    CategoryVerifier,
		Description: "Fails the link when a module lacks its descriptor or, with class-magic=true, when a .class resource does not start with 0xCAFEBABE.",
		Options:     []string{"class-magic", "require-descriptor"},
		New: func(opts Options) (Stage, error) {
			classMagic, err := opts.Bool("class-magic", false)
			if err != nil {
				return nil, err
			}
			requireDescriptor, err := opts.Bool("require-descriptor", true)
			if err != nil {
				return nil, err
			}
			return &verifyStage{
				Info:              Info{StageName: StageVerifyPool, StageCategory: CategoryVerifier},
				classMagic:        classMagic,
				requireDescriptor: requireDescriptor,
			}, nil
		},
	}
}

func (s *verifyStage) Transform(_ context.Context, in *resource.Pool) (*resource.Pool, error) {
	var problems []string
	if s.requireDescriptor {
		for _, m := range in.Modules() {
			if _, ok := in.Find(resource.Path(m, DescriptorResource)); !ok {
				problems = append(problems, fmt.Sprintf("module %s has no %s", m, DescriptorResource))
			}
		}
	}
	if s.classMagic {
		for e := range in.Entries() {
			if e.Kind() != poolcodec.KindClass || !strings.HasSuffix(e.Name(), ".class") {
				continue
			}
			content, err := e.Content()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Path(), err)
			}
			if !bytes.HasPrefix(content, classFileMagic) {
				problems = append(problems, fmt.Sprintf("%s is not a class file", e.Path()))
			}
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("pool verification failed: %s", strings.Join(problems, "; "))
	}
	return in, nil
}
