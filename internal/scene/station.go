package scene

import (
	"math"

	"github.com/Zachkp/orbit-portfolio/internal/motion"
)

const (
	stationPanels     = 4
	stationSatellites = 8
	satelliteRadius   = 2.2
)

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Satellite struct {
	Angle    float64 `json:"angle"`
	Position Vec3    `json:"position"`
	Spin     Vec3    `json:"spin"`
}

// Pose is the full transform state of the orbital station for one frame.
// The 3D renderer turns it into pixels; nothing here knows about meshes.
type Pose struct {
	Group         Vec3        `json:"group"`
	Hub           Vec3        `json:"hub"`
	RingZ         float64     `json:"ringZ"`
	RingX         float64     `json:"ringX"`
	Panels        []float64   `json:"panels"`
	Satellites    []Satellite `json:"satellites"`
	StarsRotation float64     `json:"starsRotation"`
}

// FrameProducer receives the station pose every frame.
type FrameProducer func(Pose)

// Station is the decorative space station beside the hero.
type Station struct {
	pose    Pose
	elapsed float64
}

func NewStation() *Station {
	s := &Station{pose: Pose{
		Panels:     make([]float64, stationPanels),
		Satellites: make([]Satellite, stationSatellites),
	}}
	for i := range s.pose.Satellites {
		s.pose.Satellites[i].Angle = float64(i) / stationSatellites * 2 * math.Pi
		s.pose.Satellites[i].Position = orbitPosition(s.pose.Satellites[i].Angle)
	}
	return s
}

// Advance moves every part by the frame's delta.
func (s *Station) Advance(f motion.Frame) {
	d := f.Delta
	s.elapsed += d.Seconds()
	p := &s.pose

	p.Group.Y += perFrame(0.005, d)
	p.Group.X += perFrame(0.002, d)
	p.Hub.X += perFrame(0.01, d)
	p.Hub.Y += perFrame(0.015, d)
	p.RingZ += perFrame(0.005, d)
	p.RingX += perFrame(0.005, d)
	for i := range p.Panels {
		p.Panels[i] = math.Sin(s.elapsed+float64(i)) * 0.1
	}
	for i := range p.Satellites {
		sat := &p.Satellites[i]
		sat.Angle += perFrame(0.02, d)
		sat.Position = orbitPosition(sat.Angle)
		sat.Spin.X += perFrame(0.02, d)
		sat.Spin.Y += perFrame(0.03, d)
	}
	p.StarsRotation += perFrame(0.0003, d)
}

// Pose returns a copy of the current pose.
func (s *Station) Pose() Pose {
	p := s.pose
	p.Panels = append([]float64(nil), s.pose.Panels...)
	p.Satellites = append([]Satellite(nil), s.pose.Satellites...)
	return p
}

func orbitPosition(angle float64) Vec3 {
	return Vec3{
		X: math.Cos(angle) * satelliteRadius,
		Y: math.Sin(angle*2) * 0.5,
		Z: math.Sin(angle) * satelliteRadius,
	}
}
