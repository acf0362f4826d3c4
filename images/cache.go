package images

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	vk "github.com/goki/vulkan"
)

// Cache deduplicates loaded assets by file path. It is owned by whoever owns
// the device and must be destroyed before it.
type Cache struct {
	entries map[string]*Image
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Image)}
}

// Load returns the cached image for path, loading it on first use. Volumes
// are recognized by their .bin extension; everything else decodes as a 2D
// texture with a mip chain.
func (c *Cache) Load(u *Uploader, path string, flipY bool) (*Image, error) {
	if im, ok := c.entries[path]; ok {
		return im, nil
	}

	var im *Image
	var err error
	if strings.EqualFold(filepath.Ext(path), ".bin") {
		im, err = LoadVolume(u, path)
	} else {
		im, err = LoadTexture(u, path, flipY)
	}
	if err != nil {
		return nil, err
	}
	c.entries[path] = im
	return im, nil
}

// CubemapFacePaths derives the six face files from the first face's path:
// sky.png names sky.png, sky_1.png .. sky_5.png.
func CubemapFacePaths(path string) [6]string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	faces := [6]string{path}
	for i := 1; i < 6; i++ {
		faces[i] = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	return faces
}

// LoadCubemap returns the cached cubemap whose first face is at path. The
// cache key is prefixed so a cubemap and a 2D texture sharing a path never
// collide.
func (c *Cache) LoadCubemap(u *Uploader, path string, flipY bool) (*Image, error) {
	key := "cube:" + path
	if im, ok := c.entries[key]; ok {
		return im, nil
	}

	im, err := LoadCubemap(u, CubemapFacePaths(path), flipY)
	if err != nil {
		return nil, err
	}
	c.entries[key] = im
	return im, nil
}

// Destroy releases every cached asset.
func (c *Cache) Destroy(dev vk.Device) {
	for path, im := range c.entries {
		log.Printf("releasing cached asset %s", path)
		im.Destroy(dev)
	}
	c.entries = make(map[string]*Image)
}
