package grid

import "errors"

// ErrAssetLoadFailure is returned when the asset collaborator cannot
// resolve or instantiate an asset. Geometry is applied regardless.
var ErrAssetLoadFailure = errors.New("asset load failure")

// Prefab is an opaque template returned by an AssetSource.
type Prefab any

// Handle is an opaque reference to a visual owned by the AssetSource.
// The store keeps it but never creates or destroys the underlying resource.
type Handle any

// Pose places an instantiated model in world space.
type Pose struct {
	X              float64
	Y              float64
	HeadingDegrees float64
}

// AssetSource materializes tile visuals.
type AssetSource interface {
	// Load resolves an asset id into a prefab.
	Load(assetID int) (Prefab, error)

	// Instantiate places a copy of prefab at pose.
	Instantiate(prefab Prefab, pose Pose) (Handle, error)

	// Release frees a handle previously returned by Instantiate.
	Release(h Handle)
}
