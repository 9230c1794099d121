package dispatch

import "github.com/aldric144/rtcc-platform/pkg/geo"

func geoPoint(lat, lon float64) geo.Point {
	return geo.Point{Lat: lat, Lon: lon}
}

func geoSquare(minLat, minLon, maxLat, maxLon float64) geo.Polygon {
	return geo.Polygon{
		geoPoint(minLat, minLon),
		geoPoint(minLat, maxLon),
		geoPoint(maxLat, maxLon),
		geoPoint(maxLat, minLon),
	}
}
