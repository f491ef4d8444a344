package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/annel0/voxel-remesher/internal/mesher"
	"github.com/annel0/voxel-remesher/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVoxel(p vec.Vec3) bool { return p == vec.Vec3{} }

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func vertexAt(m *Mesh, i uint32) [3]float32 {
	return [3]float32{m.Vertices[i*3], m.Vertices[i*3+1], m.Vertices[i*3+2]}
}

func TestTriangulateSingleVoxelFacesOutward(t *testing.T) {
	dims := vec.Vec3{X: 1, Y: 1, Z: 1}
	quads := mesher.Remesh(dims, unitVoxel)
	m := Triangulate(quads, unitVoxel)

	require.Equal(t, 24, m.VertexCount())
	require.Equal(t, 12, m.TriangleCount())
	require.Len(t, m.Normals, len(m.Vertices))

	for tri := 0; tri < m.TriangleCount(); tri++ {
		a := vertexAt(m, m.Indices[tri*3])
		b := vertexAt(m, m.Indices[tri*3+1])
		c := vertexAt(m, m.Indices[tri*3+2])
		ab := [3]float32{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		ac := [3]float32{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
		n := cross(ab, ac)

		i := m.Indices[tri*3]
		normal := [3]float32{m.Normals[i*3], m.Normals[i*3+1], m.Normals[i*3+2]}
		dot := n[0]*normal[0] + n[1]*normal[1] + n[2]*normal[2]
		assert.Greater(t, dot, float32(0), "треугольник %d смотрит внутрь", tri)

		// Нормаль смотрит от центра вокселя
		centre := [3]float32{(a[0] + b[0] + c[0]) / 3, (a[1] + b[1] + c[1]) / 3, (a[2] + b[2] + c[2]) / 3}
		out := (centre[0]-0.5)*normal[0] + (centre[1]-0.5)*normal[1] + (centre[2]-0.5)*normal[2]
		assert.Greater(t, out, float32(0), "треугольник %d", tri)
	}
}

func TestTriangulateWithoutOracleKeepsWinding(t *testing.T) {
	quads := mesher.Remesh(vec.Vec3{X: 1, Y: 1, Z: 1}, unitVoxel)
	m := Triangulate(quads, nil)

	for i := 0; i < m.VertexCount(); i++ {
		n := [3]float32{m.Normals[i*3], m.Normals[i*3+1], m.Normals[i*3+2]}
		assert.Equal(t, float32(1), n[0]+n[1]+n[2], "вершина %d", i)
	}
}

func TestTriangulateEmpty(t *testing.T) {
	m := Triangulate(nil, nil)
	assert.Zero(t, m.VertexCount())
	assert.Zero(t, m.TriangleCount())
}

func TestWriteOBJDeduplicatesVertices(t *testing.T) {
	quads := mesher.Remesh(vec.Vec3{X: 1, Y: 1, Z: 1}, unitVoxel)

	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, quads, OBJOptions{Oracle: unitVoxel, Comment: "voxel"}))

	counts := map[string]int{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		fields := strings.Fields(line)
		counts[fields[0]]++
		if fields[0] == "f" {
			assert.Len(t, fields, 5, line)
		}
	}

	assert.Equal(t, 8, counts["v"])
	assert.Equal(t, 6, counts["vn"])
	assert.Equal(t, 6, counts["f"])
	assert.True(t, strings.HasPrefix(buf.String(), "# voxel\n"))
}

func TestWriteOBJOffset(t *testing.T) {
	quads := mesher.Remesh(vec.Vec3{X: 1, Y: 1, Z: 1}, unitVoxel)

	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, quads, OBJOptions{Offset: vec.Vec3{X: 16, Y: 0, Z: -16}}))

	assert.Contains(t, buf.String(), "v 16 0 -16\n")
	assert.Contains(t, buf.String(), "v 17 1 -15\n")
	assert.NotContains(t, buf.String(), "v 0 0 0\n")
}
