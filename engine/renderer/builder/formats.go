package builder

import vk "github.com/goki/vulkan"

// formatSizes holds the byte size of one element of each vertex-capable
// format. Depth and compressed formats are not listed.
var formatSizes = map[vk.Format]uint32{
	vk.FormatR8Unorm:   1,
	vk.FormatR8Snorm:   1,
	vk.FormatR8Uint:    1,
	vk.FormatR8Sint:    1,
	vk.FormatR8g8Unorm: 2,
	vk.FormatR8g8Snorm: 2,
	vk.FormatR8g8Uint:  2,
	vk.FormatR8g8Sint:  2,

	vk.FormatR8g8b8a8Unorm: 4,
	vk.FormatR8g8b8a8Snorm: 4,
	vk.FormatR8g8b8a8Uint:  4,
	vk.FormatR8g8b8a8Sint:  4,
	vk.FormatR8g8b8a8Srgb:  4,
	vk.FormatB8g8r8a8Unorm: 4,
	vk.FormatB8g8r8a8Srgb:  4,

	vk.FormatA2b10g10r10UnormPack32: 4,

	vk.FormatR16Unorm:           2,
	vk.FormatR16Sint:            2,
	vk.FormatR16Uint:            2,
	vk.FormatR16Sfloat:          2,
	vk.FormatR16g16Unorm:        4,
	vk.FormatR16g16Sint:         4,
	vk.FormatR16g16Uint:         4,
	vk.FormatR16g16Sfloat:       4,
	vk.FormatR16g16b16a16Unorm:  8,
	vk.FormatR16g16b16a16Sint:   8,
	vk.FormatR16g16b16a16Uint:   8,
	vk.FormatR16g16b16a16Sfloat: 8,

	vk.FormatR32Uint:            4,
	vk.FormatR32Sint:            4,
	vk.FormatR32Sfloat:          4,
	vk.FormatR32g32Uint:         8,
	vk.FormatR32g32Sint:         8,
	vk.FormatR32g32Sfloat:       8,
	vk.FormatR32g32b32Uint:      12,
	vk.FormatR32g32b32Sint:      12,
	vk.FormatR32g32b32Sfloat:    12,
	vk.FormatR32g32b32a32Uint:   16,
	vk.FormatR32g32b32a32Sint:   16,
	vk.FormatR32g32b32a32Sfloat: 16,

	vk.FormatR64Sfloat:          8,
	vk.FormatR64g64Sfloat:       16,
	vk.FormatR64g64b64Sfloat:    24,
	vk.FormatR64g64b64a64Sfloat: 32,
}

// FormatSize returns the size in bytes of one element of format, and false
// when the format is not a known vertex format.
func FormatSize(format vk.Format) (uint32, bool) {
	size, ok := formatSizes[format]
	return size, ok
}
