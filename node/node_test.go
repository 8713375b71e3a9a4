package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-optical/isokit/consts"
)

func TestNewArenaHasSharedRoot(t *testing.T) {
	a := NewArena()
	iso := a.Root(consts.NamespaceISO9660)
	joliet := a.Root(consts.NamespaceJoliet)
	assert.Equal(t, iso, joliet, "root is one node shared across namespaces")
	assert.True(t, a.Node(iso).IsDir)
}

func TestAddHardLinkLeavesOtherNamespacesUnchanged(t *testing.T) {
	a := NewArena()
	payload := a.AddPayload(Payload{Size: 8})
	file := a.NewFileNode(payload)

	require.NoError(t, a.AddHardLink(file.ID, PathSpec{Namespace: consts.NamespaceISO9660, Path: "/", Name: "FOO.;1"}, RecordView{}))
	assert.True(t, file.InNamespace(consts.NamespaceISO9660))
	assert.False(t, file.InNamespace(consts.NamespaceJoliet))

	require.NoError(t, a.AddHardLink(file.ID, PathSpec{Namespace: consts.NamespaceJoliet, Path: "/", Name: "foo"}, RecordView{}))
	assert.True(t, file.InNamespace(consts.NamespaceJoliet))
	assert.Equal(t, "FOO.;1", file.Name(consts.NamespaceISO9660))
	assert.Equal(t, "foo", file.Name(consts.NamespaceJoliet))
}

func TestRemoveLinkDropsPayloadRefOnLastLink(t *testing.T) {
	a := NewArena()
	payload := a.AddPayload(Payload{Size: 8})
	file := a.NewFileNode(payload)
	require.NoError(t, a.AddHardLink(file.ID, PathSpec{Namespace: consts.NamespaceISO9660, Path: "/", Name: "FOO.;1"}, RecordView{}))

	assert.Empty(t, a.OrphanPayloads())
	require.NoError(t, a.RemoveFile(file.ID))
	assert.Equal(t, []PayloadID{payload}, a.OrphanPayloads())
}

func TestHardLinkGroupSharesPayload(t *testing.T) {
	a := NewArena()
	payload := a.AddPayload(Payload{Size: 8})
	n1 := a.NewFileNode(payload)
	n2 := a.NewFileNode(payload)
	require.NoError(t, a.AddHardLink(n1.ID, PathSpec{Namespace: consts.NamespaceISO9660, Path: "/", Name: "A.;1"}, RecordView{}))
	require.NoError(t, a.AddHardLink(n2.ID, PathSpec{Namespace: consts.NamespaceISO9660, Path: "/", Name: "B.;1"}, RecordView{}))

	group := a.HardLinkGroup(n1.ID)
	assert.ElementsMatch(t, []ID{n1.ID, n2.ID}, group)
}

func TestResolveWalksNestedDirectories(t *testing.T) {
	a := NewArena()
	root := a.Root(consts.NamespaceISO9660)
	sub := a.NewDirNode()
	require.NoError(t, a.Attach(consts.NamespaceISO9660, root, sub.ID, RecordView{Name: "SUB"}))
	payload := a.AddPayload(Payload{Size: 4})
	file := a.NewFileNode(payload)
	require.NoError(t, a.Attach(consts.NamespaceISO9660, sub.ID, file.ID, RecordView{Name: "LEAF.;1"}))

	got, err := a.Resolve(consts.NamespaceISO9660, "/SUB/LEAF.;1")
	require.NoError(t, err)
	assert.Equal(t, file.ID, got)
}

func TestResolveUnknownComponentFails(t *testing.T) {
	a := NewArena()
	_, err := a.Resolve(consts.NamespaceISO9660, "/NOPE.;1")
	assert.Error(t, err)
}

func TestSortChildrenOrdersByPaddedName(t *testing.T) {
	a := NewArena()
	root := a.Root(consts.NamespaceISO9660)
	for _, name := range []string{"B.;1", "A.;1", "C.;1"} {
		payload := a.AddPayload(Payload{Size: 1})
		file := a.NewFileNode(payload)
		require.NoError(t, a.Attach(consts.NamespaceISO9660, root, file.ID, RecordView{Name: name}))
	}
	a.SortChildren(consts.NamespaceISO9660, root)

	var names []string
	for _, cid := range a.Node(root).Children[consts.NamespaceISO9660] {
		names = append(names, a.Node(cid).Name(consts.NamespaceISO9660))
	}
	assert.Equal(t, []string{"A.;1", "B.;1", "C.;1"}, names)
}

func TestRelocateMovesISORecordUnderRRMoved(t *testing.T) {
	a := NewArena()
	root := a.Root(consts.NamespaceISO9660)
	deep := a.NewDirNode()
	require.NoError(t, a.Attach(consts.NamespaceISO9660, root, deep.ID, RecordView{Name: "DEEP"}))

	require.NoError(t, a.Relocate(deep.ID, root))

	rrMoved, err := a.Resolve(consts.NamespaceISO9660, "/"+consts.RRMovedDirName)
	require.NoError(t, err)
	children := a.Node(rrMoved).Children[consts.NamespaceISO9660]
	assert.Contains(t, children, deep.ID)

	view := a.ResolveRelocations()
	assert.Contains(t, view[root], deep.ID)
}

func TestDepthCountsRootAsOne(t *testing.T) {
	a := NewArena()
	root := a.Root(consts.NamespaceISO9660)
	assert.Equal(t, 1, a.Depth(consts.NamespaceISO9660, root))
	sub := a.NewDirNode()
	require.NoError(t, a.Attach(consts.NamespaceISO9660, root, sub.ID, RecordView{Name: "SUB"}))
	assert.Equal(t, 2, a.Depth(consts.NamespaceISO9660, sub.ID))
}
