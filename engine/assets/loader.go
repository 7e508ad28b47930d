package assets

import "github.com/spaghettifunk/vkbuild/engine/assets/loaders"

// Loader turns one description file into finalized configs.
type Loader interface {
	Load(path string) (*loaders.PipelineSet, error)
}
