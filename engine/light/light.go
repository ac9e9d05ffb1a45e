package light

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/bind_group_provider"
)

// Defaults of the single scene light.
const (
	DefaultIntensity = 0.7
	DefaultRange     = 0 // unbounded
)

// DefaultPosition is where the scene light sits when no position is given.
var DefaultPosition = common.V3(1, 1, 100)

var lightCount atomic.Uint64

type pointLightImpl struct {
	mu *sync.Mutex

	position   common.Vec3
	color      common.Vec3
	intensity  float32
	lightRange float32

	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Light is a point light that illuminates the atlas quads. Its uniform is bound in the
// second bind group of the scene pipeline.
type Light interface {
	// Position returns the world-space position of the light.
	Position() common.Vec3

	// Color returns the linear RGB color of the light.
	Color() common.Vec3

	// Intensity returns the scalar brightness multiplier.
	Intensity() float32

	// Range returns the falloff distance. Zero disables attenuation.
	Range() float32

	SetPosition(p common.Vec3)
	SetColor(c common.Vec3)
	SetIntensity(intensity float32)
	SetRange(lightRange float32)

	// Uniform packs the light into the layout the scene shader reads.
	//
	// Returns:
	//   - GPUPointLight: the serialisable uniform
	Uniform() GPUPointLight

	// BindGroupProvider returns the provider holding the light uniform buffer.
	BindGroupProvider() bind_group_provider.BindGroupProvider
}

var _ Light = &pointLightImpl{}

// NewPointLight creates a white point light of intensity 0.7 at (1, 1, 100).
//
// Parameters:
//   - opts: functional options applied after the defaults
//
// Returns:
//   - Light: the new light
func NewPointLight(opts ...LightBuilderOption) Light {
	l := &pointLightImpl{
		mu:         &sync.Mutex{},
		position:   DefaultPosition,
		color:      common.V3(1, 1, 1),
		intensity:  DefaultIntensity,
		lightRange: DefaultRange,
		bindGroupProvider: bind_group_provider.NewBindGroupProvider(
			"light_" + strconv.FormatUint(lightCount.Add(1)-1, 10),
		),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *pointLightImpl) Position() common.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

func (l *pointLightImpl) Color() common.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *pointLightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *pointLightImpl) Range() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lightRange
}

func (l *pointLightImpl) SetPosition(p common.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = p
}

func (l *pointLightImpl) SetColor(c common.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = c
}

func (l *pointLightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = max(intensity, 0)
}

func (l *pointLightImpl) SetRange(lightRange float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lightRange = max(lightRange, 0)
}

func (l *pointLightImpl) Uniform() GPUPointLight {
	l.mu.Lock()
	defer l.mu.Unlock()
	return GPUPointLight{
		Position:   l.position.Array(),
		Intensity:  l.intensity,
		Color:      l.color.Array(),
		LightRange: l.lightRange,
	}
}

func (l *pointLightImpl) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return l.bindGroupProvider
}
