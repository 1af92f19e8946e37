package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/src/lib.rs b/src/lib.rs
index 83db48f..bf269f4 100644
--- a/src/lib.rs
+++ b/src/lib.rs
@@ -10,0 +11,2 @@ fn poll() {
+    let _ = client.receive_message().send().await;
+    let _ = client.send_message().send().await;
@@ -20 +22 @@ fn other() {
-    old();
+    new();
@@ -30,2 +31,0 @@ fn gone() {
-    a();
-    b();
diff --git a/old.go b/old.go
deleted file mode 100644
index 83db48f..0000000
--- a/old.go
+++ /dev/null
@@ -1,2 +0,0 @@
-package old
-
`

func TestParseDiff(t *testing.T) {
	changes, err := parseDiff([]byte(sampleDiff))
	require.NoError(t, err)

	require.Len(t, changes, 1, "deleted files are skipped")
	assert.Equal(t, "src/lib.rs", changes[0].Path)
	assert.Equal(t, []int{11, 12, 22, 31}, changes[0].ChangedLines)
}

func TestParseDiff_Empty(t *testing.T) {
	changes, err := parseDiff(nil)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestCleanPath(t *testing.T) {
	assert.Equal(t, "x/y.go", cleanPath("b/x/y.go"))
	assert.Equal(t, "x/y.go", cleanPath("x/y.go"))
}
